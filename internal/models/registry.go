// Package models holds small reference models that implement the waveform
// contract, and a registry to construct them by name.
package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// ErrUnknownModel is returned by New for names not in the registry.
var ErrUnknownModel = errors.New("unknown model")

// Options configures a model at construction time. Fields a model does not
// use are ignored.
type Options struct {
	// DelaySamples is the lookahead of the "lookahead" model.
	DelaySamples int `json:"delay_samples,omitempty" yaml:"delay_samples"`
	// KernelPath points at a .safetensors file with a 1-D "kernel" tensor for
	// the "fir" model.
	KernelPath string `json:"kernel_path,omitempty" yaml:"kernel_path"`
	// Taps is the length of the built-in moving-average kernel used by "fir"
	// when no KernelPath is given.
	Taps int `json:"taps,omitempty" yaml:"taps"`
}

type factory func(Options) (wavemodel.Model, error)

var registry = map[string]factory{
	"gain": func(Options) (wavemodel.Model, error) {
		return NewGain(), nil
	},
	"lookahead": func(o Options) (wavemodel.Model, error) {
		return NewLookahead(o.DelaySamples)
	},
	"fir": func(o Options) (wavemodel.Model, error) {
		if o.KernelPath != "" {
			return LoadFIR(o.KernelPath)
		}
		return NewMovingAverage(o.Taps)
	},
}

// Names returns the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named model.
func New(name string, opts Options) (wavemodel.Model, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return f(opts)
}
