// Package render drives a model instance over a whole signal the way a
// plugin host would, one fixed-size buffer at a time.
package render

import (
	"context"
	"fmt"
	"slices"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// DefaultBufferSize is used when Options.BufferSize is not positive.
const DefaultBufferSize = 512

// maxTailBlocks bounds how many silent blocks are fed to push delayed
// samples out of a model that cannot flush.
const maxTailBlocks = 64

type Options struct {
	BufferSize int
	// CompensateDelay trims the model latency from the head of the output
	// and recovers the tail, so output sample i lines up with input sample i.
	CompensateDelay bool
	// Params holds one constant value per declared parameter. Nil uses the
	// declared defaults.
	Params []float32
}

// Stats describes a finished render.
type Stats struct {
	Blocks       int
	BufferSize   int
	DelaySamples int
	Flushed      bool
}

// Render processes x (channels x samples) and returns the model output with
// the same number of samples.
func Render(ctx context.Context, inst *wavemodel.Instance, x tensor.Mat, opts Options) (tensor.Mat, Stats, error) {
	log := logger.FromContext(ctx)

	bs := opts.BufferSize
	if bs <= 0 {
		bs = DefaultBufferSize
	}
	stats := Stats{BufferSize: bs}

	if sizes := inst.NativeBufferSizes(); len(sizes) > 0 && !slices.Contains(sizes, bs) {
		log.Warn("buffer size is not native to the model", "buffer_size", bs, "native", sizes)
	}
	if !inst.SetBufferSize(bs) {
		log.Debug("model keeps its own buffering", "buffer_size", bs)
	}

	var params *tensor.Mat
	if opts.Params != nil {
		p := tensor.NewMatFromData(len(opts.Params), 1, slices.Clone(opts.Params)).Repeat(bs)
		params = &p
	}

	n := x.C
	delay := inst.MinDelaySamples()
	stats.DelaySamples = delay
	want := n
	if opts.CompensateDelay {
		want = n + delay
	}

	var out [][]float32
	run := func(block tensor.Mat) error {
		y, err := inst.Forward(block, params)
		if err != nil {
			return fmt.Errorf("block %d: %w", stats.Blocks, err)
		}
		out = appendCols(out, y)
		stats.Blocks++
		return nil
	}

	for start := 0; start < n; start += bs {
		if err := ctx.Err(); err != nil {
			return tensor.Mat{}, stats, err
		}
		if err := run(padded(x, start, bs)); err != nil {
			return tensor.Mat{}, stats, err
		}
	}

	if opts.CompensateDelay && delay > 0 {
		if tail, ok := inst.Flush(); ok {
			out = appendCols(out, tail)
			stats.Flushed = true
		}
		// A model that cannot flush is fed silence until the delayed
		// samples come out.
		for i := 0; cols(out) < want; i++ {
			if i == maxTailBlocks {
				return tensor.Mat{}, stats, fmt.Errorf("model latency %d not drained after %d silent blocks", delay, maxTailBlocks)
			}
			if err := ctx.Err(); err != nil {
				return tensor.Mat{}, stats, err
			}
			if err := run(tensor.NewMat(x.R, bs)); err != nil {
				return tensor.Mat{}, stats, err
			}
		}
		log.Debug("compensated model latency", "delay_samples", delay, "flushed", stats.Flushed)
	}

	skip := 0
	if opts.CompensateDelay {
		skip = delay
	}
	y := tensor.NewMat(len(out), n)
	for c := range out {
		copy(y.Row(c), out[c][skip:skip+n])
	}
	return y, stats, nil
}

// padded copies bs columns of x starting at start, zero filling past the end.
func padded(x tensor.Mat, start, bs int) tensor.Mat {
	end := min(start+bs, x.C)
	block := tensor.NewMat(x.R, bs)
	for c := 0; c < x.R; c++ {
		copy(block.Row(c), x.Row(c)[start:end])
	}
	return block
}

func appendCols(dst [][]float32, m tensor.Mat) [][]float32 {
	if dst == nil {
		dst = make([][]float32, m.R)
	}
	for c := 0; c < len(dst) && c < m.R; c++ {
		dst[c] = append(dst[c], m.Row(c)...)
	}
	return dst
}

func cols(rows [][]float32) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}
