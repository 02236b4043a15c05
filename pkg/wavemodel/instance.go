package wavemodel

import (
	"fmt"

	"github.com/samcharles93/wavehost/pkg/tensor"
)

// Instance is the host-facing view of a Model. It orchestrates the forward
// pass and answers every lifecycle call, applying the default behaviour for
// optional hooks the model does not implement.
//
// Instance holds no mutable state of its own. Any state belongs to the
// wrapped model, and callers must not invoke methods concurrently.
type Instance struct {
	model Model
}

// NewInstance wraps m.
func NewInstance(m Model) *Instance {
	return &Instance{model: m}
}

// Model returns the wrapped model.
func (in *Instance) Model() Model {
	return in.model
}

// Forward validates x, remaps params, runs the model and validates its
// output. A nil params uses the declared defaults repeated across the
// buffer. No output is returned when any step fails.
func (in *Instance) Forward(x tensor.Mat, params *tensor.Mat) (tensor.Mat, error) {
	var p tensor.Mat
	if params == nil {
		defaults := DefaultParameterValues(in.model.Info().Parameters)
		p = defaults.Repeat(x.C)
	} else {
		p = *params
	}

	if err := ValidateWaveform(x, in.model.IsInputMono()); err != nil {
		return tensor.Mat{}, fmt.Errorf("input: %w", err)
	}
	if p.R > 0 && p.C != x.C {
		return tensor.Mat{}, paramWidthError(p.C, x.C)
	}
	remapped, err := in.RemapParams(p)
	if err != nil {
		return tensor.Mat{}, err
	}
	y, err := in.model.DoForwardPass(x, remapped)
	if err != nil {
		return tensor.Mat{}, fmt.Errorf("forward pass: %w: %w", ErrModelOutput, err)
	}
	if err := ValidateWaveform(y, in.model.IsOutputMono()); err != nil {
		return tensor.Mat{}, fmt.Errorf("output: %w: %w", ErrModelOutput, err)
	}
	return y, nil
}

// RemapParams turns a (parameters x samples) buffer into the values handed
// to DoForwardPass. Unless the model implements ParamRemapper, each row is
// reduced to its mean and the row count must match the declared parameters.
func (in *Instance) RemapParams(params tensor.Mat) (Params, error) {
	if r, ok := in.model.(ParamRemapper); ok {
		return r.RemapParams(params)
	}
	return MeanParams(in.model.Info().Parameters, params)
}

// DefaultParameters returns the declared defaults as an (n x 1) matrix.
func (in *Instance) DefaultParameters() tensor.Mat {
	return DefaultParameterValues(in.model.Info().Parameters)
}

// MinDelaySamples returns the model's current output latency, 0 by default.
// It is queried from the model every time.
func (in *Instance) MinDelaySamples() int {
	if d, ok := in.model.(DelayReporter); ok {
		return d.MinDelaySamples()
	}
	return 0
}

// SetBufferSize asks the model to resize its internal buffering. It returns
// false when the model does not support resizing.
func (in *Instance) SetBufferSize(n int) bool {
	if r, ok := in.model.(BufferResizer); ok {
		return r.SetBufferSize(n)
	}
	return false
}

// Flush drains buffered samples. ok is false when the model does not support
// flushing or has nothing to flush.
func (in *Instance) Flush() (tensor.Mat, bool) {
	if f, ok := in.model.(Flusher); ok {
		return f.Flush()
	}
	return tensor.Mat{}, false
}

// Reset clears the model's internal state. It returns false when resetting
// is not supported.
func (in *Instance) Reset() bool {
	if r, ok := in.model.(Resetter); ok {
		return r.Reset()
	}
	return false
}

func (in *Instance) IsInputMono() bool        { return in.model.IsInputMono() }
func (in *Instance) IsOutputMono() bool       { return in.model.IsOutputMono() }
func (in *Instance) NativeSampleRates() []int { return in.model.NativeSampleRates() }
func (in *Instance) NativeBufferSizes() []int { return in.model.NativeBufferSizes() }

// Metadata assembles a fresh metadata record for the wrapped model.
func (in *Instance) Metadata() (Metadata, error) {
	return ToMetadata(in.model)
}

// Capabilities reports which optional hooks the wrapped model implements.
func (in *Instance) Capabilities() Capabilities {
	return CapabilitiesOf(in.model)
}
