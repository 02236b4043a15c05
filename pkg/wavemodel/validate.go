package wavemodel

import "github.com/samcharles93/wavehost/pkg/tensor"

// ValidateWaveform checks that x is a (channels x samples) buffer with one
// channel when mono is set and two otherwise, holding only finite samples.
func ValidateWaveform(x tensor.Mat, mono bool) error {
	if x.R <= 0 || x.C <= 0 {
		return waveformError("empty buffer (%d x %d)", x.R, x.C)
	}
	if x.Stride < x.C || len(x.Data) < (x.R-1)*x.Stride+x.C {
		return waveformError("data does not cover %d x %d", x.R, x.C)
	}
	want := 2
	if mono {
		want = 1
	}
	if x.R != want {
		return waveformError("expected %d channel(s), got %d", want, x.R)
	}
	if !x.AllFinite() {
		return waveformError("non-finite sample")
	}
	return nil
}
