package wavemodel

import "github.com/samcharles93/wavehost/pkg/tensor"

// Params maps a parameter name to its values for the current buffer. The
// default remapping yields a single value per parameter; models that
// implement ParamRemapper may keep one value per sample.
type Params map[string][]float32

// Scalar returns the first value of the named parameter, or fallback if it is
// missing.
func (p Params) Scalar(name string, fallback float32) float32 {
	v, ok := p[name]
	if !ok || len(v) == 0 {
		return fallback
	}
	return v[0]
}

// MeanParams collapses each row of params to its arithmetic mean and keys the
// result by the declared parameter names.
func MeanParams(declared []Parameter, params tensor.Mat) (Params, error) {
	if params.R != len(declared) {
		return nil, paramCountError(params.R, len(declared))
	}
	if params.R > 0 && params.C == 0 {
		return nil, paramWidthError(0, 1)
	}
	out := make(Params, len(declared))
	for i, p := range declared {
		out[p.Name] = []float32{params.RowMean(i)}
	}
	return out, nil
}
