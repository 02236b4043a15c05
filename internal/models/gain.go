package models

import (
	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// Gain scales a stereo signal by 2*gain, so the default of 0.5 is unity.
// It is stateless and accepts every sample rate and buffer size.
type Gain struct{}

func NewGain() *Gain {
	return &Gain{}
}

func (g *Gain) Info() wavemodel.Info {
	return wavemodel.Info{
		Name:                 "Gain",
		Authors:              []string{"wavehost"},
		Version:              "1.0.0",
		ShortDescription:     "Linear gain stage.",
		LongDescription:      "Multiplies both channels by twice the gain parameter.",
		TechnicalDescription: "y = 2 * gain * x",
		Tags:                 []string{"utility", "gain"},
		Parameters: []wavemodel.Parameter{
			{Name: "gain", Description: "output level, 0.5 is unity", DefaultValue: 0.5, Used: true},
		},
	}
}

func (g *Gain) IsInputMono() bool        { return false }
func (g *Gain) IsOutputMono() bool       { return false }
func (g *Gain) NativeSampleRates() []int { return nil }
func (g *Gain) NativeBufferSizes() []int { return nil }

func (g *Gain) DoForwardPass(x tensor.Mat, params wavemodel.Params) (tensor.Mat, error) {
	y := x.Clone()
	tensor.Scale(y.Data, 2*params.Scalar("gain", 0.5))
	return y, nil
}
