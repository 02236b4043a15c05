// Package wavemodel defines the contract a waveform-to-waveform audio model
// satisfies to be hosted by a plugin runtime.
//
// A model implements Model. Lifecycle hooks a model may or may not support
// (delay reporting, buffer resizing, flushing, resetting, custom parameter
// remapping) are separate single-method interfaces; Instance detects them and
// falls back to the documented defaults when they are absent.
package wavemodel

import "github.com/samcharles93/wavehost/pkg/tensor"

// Model is the set of capabilities every waveform model must provide.
type Model interface {
	// Info returns the model's identity, parameter declarations and mix
	// defaults.
	Info() Info

	IsInputMono() bool
	IsOutputMono() bool

	// NativeSampleRates lists the sample rates the model was developed and
	// tested with. An empty list means all common rates are supported.
	NativeSampleRates() []int

	// NativeBufferSizes lists the buffer sizes the model was developed and
	// tested with. An empty list means all common sizes are supported.
	NativeBufferSizes() []int

	// DoForwardPass processes one validated buffer. params holds the output
	// of parameter remapping.
	DoForwardPass(x tensor.Mat, params Params) (tensor.Mat, error)
}

// ParamRemapper replaces the default mean-per-buffer parameter remapping.
// params has one row per declared parameter and one column per sample.
type ParamRemapper interface {
	RemapParams(params tensor.Mat) (Params, error)
}

// DelayReporter reports a fixed output latency in samples, e.g. from a
// lookahead buffer. The value may change after SetBufferSize.
type DelayReporter interface {
	MinDelaySamples() int
}

// BufferResizer reconfigures internal buffering. It returns false when the
// size is not supported, in which case state is left untouched.
type BufferResizer interface {
	SetBufferSize(n int) bool
}

// Flusher drains internally delayed samples. The returned matrix is one
// buffer long with the flushed samples first and zeros after them. ok is
// false when there is nothing the model can flush.
type Flusher interface {
	Flush() (out tensor.Mat, ok bool)
}

// Resetter clears internal state such as delay lines or recurrent state.
type Resetter interface {
	Reset() bool
}
