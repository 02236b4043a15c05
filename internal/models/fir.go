package models

import (
	"fmt"
	"path/filepath"

	"github.com/samcharles93/wavehost/internal/safetensors"
	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// KernelTensor is the tensor name LoadFIR reads.
const KernelTensor = "kernel"

const (
	defaultTaps = 8
	maxTaps     = 4096
)

// FIR is a mono finite impulse response filter. Its history spans buffer
// boundaries, and it keeps the mix parameter at per-sample resolution.
type FIR struct {
	name    string
	kernel  []float32 // kernel[k] multiplies x[n-k]
	rev     []float32 // kernel reversed, for dot products over the input
	history []float32 // last len(kernel)-1 inputs, oldest first
}

// NewFIR builds a filter from explicit taps.
func NewFIR(name string, kernel []float32) (*FIR, error) {
	if len(kernel) == 0 || len(kernel) > maxTaps {
		return nil, fmt.Errorf("fir kernel must have 1..%d taps, got %d", maxTaps, len(kernel))
	}
	k := make([]float32, len(kernel))
	copy(k, kernel)
	rev := make([]float32, len(k))
	for i, v := range k {
		rev[len(k)-1-i] = v
	}
	return &FIR{
		name:    name,
		kernel:  k,
		rev:     rev,
		history: make([]float32, len(k)-1),
	}, nil
}

// NewMovingAverage builds a boxcar low-pass with the given number of taps.
// Zero selects the default.
func NewMovingAverage(taps int) (*FIR, error) {
	if taps == 0 {
		taps = defaultTaps
	}
	if taps < 0 {
		return nil, fmt.Errorf("taps must be positive, got %d", taps)
	}
	kernel := make([]float32, taps)
	for i := range kernel {
		kernel[i] = 1 / float32(taps)
	}
	return NewFIR(fmt.Sprintf("Moving Average (%d taps)", taps), kernel)
}

// LoadFIR reads a 1-D kernel tensor from a .safetensors file. A "name"
// entry in the file metadata overrides the display name.
func LoadFIR(path string) (*FIR, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open kernel: %w", err)
	}
	data, info, err := f.ReadTensorF32(KernelTensor)
	if err != nil {
		return nil, err
	}
	if len(info.Shape) != 1 {
		return nil, fmt.Errorf("%s: expected 1-D tensor, got shape %v", KernelTensor, info.Shape)
	}
	name := f.Metadata["name"]
	if name == "" {
		name = "FIR " + filepath.Base(path)
	}
	return NewFIR(name, data)
}

// Kernel returns a copy of the filter taps.
func (f *FIR) Kernel() []float32 {
	return append([]float32(nil), f.kernel...)
}

func (f *FIR) Info() wavemodel.Info {
	return wavemodel.Info{
		Name:                 f.name,
		Authors:              []string{"wavehost"},
		Version:              "1.0.0",
		ShortDescription:     "Mono FIR filter.",
		LongDescription:      "Convolves the input with a fixed kernel and blends it with the dry signal.",
		TechnicalDescription: fmt.Sprintf("Direct-form FIR, %d taps.", len(f.kernel)),
		Tags:                 []string{"filter", "fir"},
		Parameters: []wavemodel.Parameter{
			{Name: "mix", Description: "dry/wet blend", DefaultValue: 1, Used: true},
		},
	}
}

func (f *FIR) IsInputMono() bool        { return true }
func (f *FIR) IsOutputMono() bool       { return true }
func (f *FIR) NativeSampleRates() []int { return nil }
func (f *FIR) NativeBufferSizes() []int { return nil }

// RemapParams keeps the full per-sample mix row.
func (f *FIR) RemapParams(params tensor.Mat) (wavemodel.Params, error) {
	if params.R != 1 {
		return nil, fmt.Errorf("%w: fir expects 1 row, got %d", wavemodel.ErrParamCount, params.R)
	}
	return wavemodel.Params{"mix": append([]float32(nil), params.Row(0)...)}, nil
}

func (f *FIR) DoForwardPass(x tensor.Mat, params wavemodel.Params) (tensor.Mat, error) {
	in := x.Row(0)
	n := len(in)
	mix := params["mix"]
	if len(mix) != 1 && len(mix) != n {
		return tensor.Mat{}, fmt.Errorf("mix has %d values for %d samples", len(mix), n)
	}

	h := len(f.history)
	buf := make([]float32, 0, h+n)
	buf = append(buf, f.history...)
	buf = append(buf, in...)

	y := tensor.NewMat(1, n)
	out := y.Row(0)
	taps := len(f.rev)
	for i := 0; i < n; i++ {
		out[i] = tensor.Dot(f.rev, buf[i:i+taps])
	}
	if len(mix) == 1 {
		tensor.Mix(out, in, out, mix[0])
	} else {
		for i := range out {
			out[i] = in[i]*(1-mix[i]) + out[i]*mix[i]
		}
	}

	copy(f.history, buf[len(buf)-h:])
	return y, nil
}

func (f *FIR) Reset() bool {
	clear(f.history)
	return true
}
