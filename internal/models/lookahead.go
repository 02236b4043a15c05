package models

import (
	"fmt"
	"slices"

	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

const (
	defaultLookahead  = 64
	defaultBufferSize = 512
)

var lookaheadBufferSizes = []int{128, 256, 512, 1024, 2048}

// Lookahead is a stereo peak limiter that looks delay samples into the
// future, so its output lags the input by MinDelaySamples. The effective
// delay never exceeds the configured buffer size.
type Lookahead struct {
	lookahead  int
	bufferSize int
	delay      int
	ceiling    float32
	history    tensor.Mat // 2 x delay, most recent input not yet emitted
}

// NewLookahead builds a limiter with the given lookahead in samples. Zero
// selects the default lookahead.
func NewLookahead(lookahead int) (*Lookahead, error) {
	if lookahead < 0 {
		return nil, fmt.Errorf("lookahead must be non-negative, got %d", lookahead)
	}
	if lookahead == 0 {
		lookahead = defaultLookahead
	}
	l := &Lookahead{
		lookahead:  lookahead,
		bufferSize: defaultBufferSize,
		ceiling:    1,
	}
	l.delay = min(lookahead, l.bufferSize)
	l.history = tensor.NewMat(2, l.delay)
	return l, nil
}

func (l *Lookahead) Info() wavemodel.Info {
	return wavemodel.Info{
		Name:                 "Lookahead Limiter",
		Authors:              []string{"wavehost"},
		Version:              "1.0.0",
		ShortDescription:     "Brickwall peak limiter with lookahead.",
		LongDescription:      "Delays the signal so gain reduction can start before a peak arrives.",
		TechnicalDescription: "Per-sample gain from the peak of a lookahead window across both channels.",
		Tags:                 []string{"dynamics", "limiter"},
		Parameters: []wavemodel.Parameter{
			{Name: "ceiling", Description: "peak ceiling (linear)", DefaultValue: 1, Used: true},
		},
	}
}

func (l *Lookahead) IsInputMono() bool        { return false }
func (l *Lookahead) IsOutputMono() bool       { return false }
func (l *Lookahead) NativeSampleRates() []int { return []int{44100, 48000} }
func (l *Lookahead) NativeBufferSizes() []int { return slices.Clone(lookaheadBufferSizes) }

func (l *Lookahead) DoForwardPass(x tensor.Mat, params wavemodel.Params) (tensor.Mat, error) {
	l.ceiling = params.Scalar("ceiling", 1)
	n := x.C
	window := l.concat(x)
	out := l.limit(window, n)
	for c := 0; c < 2; c++ {
		copy(l.history.Row(c), window[c][n:])
	}
	return out, nil
}

func (l *Lookahead) MinDelaySamples() int {
	return l.delay
}

// SetBufferSize accepts only the native sizes. The delay is clamped to the
// new size, which discards buffered samples when it changes.
func (l *Lookahead) SetBufferSize(n int) bool {
	if !slices.Contains(lookaheadBufferSizes, n) {
		return false
	}
	l.bufferSize = n
	if d := min(l.lookahead, n); d != l.delay {
		l.delay = d
		l.history = tensor.NewMat(2, d)
	}
	return true
}

// Flush emits the buffered samples, left-aligned in a zeroed buffer, and
// clears the delay line.
func (l *Lookahead) Flush() (tensor.Mat, bool) {
	if l.delay == 0 {
		return tensor.Mat{}, false
	}
	window := l.concat(tensor.NewMat(2, l.delay))
	tail := l.limit(window, l.delay)
	out := tensor.NewMat(2, max(l.bufferSize, l.delay))
	for c := 0; c < 2; c++ {
		copy(out.Row(c), tail.Row(c))
	}
	l.Reset()
	return out, true
}

func (l *Lookahead) Reset() bool {
	clear(l.history.Data)
	return true
}

// concat returns history followed by x, per channel.
func (l *Lookahead) concat(x tensor.Mat) [2][]float32 {
	var w [2][]float32
	for c := 0; c < 2; c++ {
		row := make([]float32, 0, l.delay+x.C)
		row = append(row, l.history.Row(c)...)
		w[c] = append(row, x.Row(c)...)
	}
	return w
}

// limit produces n output samples from window, where output i is window[i]
// scaled so the peak of window[i : i+delay+1] stays under the ceiling.
func (l *Lookahead) limit(window [2][]float32, n int) tensor.Mat {
	out := tensor.NewMat(2, n)
	for i := 0; i < n; i++ {
		end := min(i+l.delay+1, len(window[0]))
		var peak float32
		for c := 0; c < 2; c++ {
			for _, v := range window[c][i:end] {
				if v < 0 {
					v = -v
				}
				peak = max(peak, v)
			}
		}
		gain := float32(1)
		if peak > l.ceiling {
			gain = l.ceiling / peak
		}
		out.Row(0)[i] = window[0][i] * gain
		out.Row(1)[i] = window[1][i] * gain
	}
	return out
}
