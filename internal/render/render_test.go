package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/pkg/tensor"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// latent delays a mono signal by a fixed number of samples but cannot flush.
type latent struct {
	delay   int
	history []float32
}

func (l *latent) Info() wavemodel.Info {
	return wavemodel.Info{Name: "latent", Authors: []string{"test"}, Version: "0"}
}
func (l *latent) IsInputMono() bool        { return true }
func (l *latent) IsOutputMono() bool       { return true }
func (l *latent) NativeSampleRates() []int { return nil }
func (l *latent) NativeBufferSizes() []int { return nil }
func (l *latent) MinDelaySamples() int     { return l.delay }

func (l *latent) DoForwardPass(x tensor.Mat, _ wavemodel.Params) (tensor.Mat, error) {
	if l.history == nil {
		l.history = make([]float32, l.delay)
	}
	buf := append(append([]float32(nil), l.history...), x.Row(0)...)
	copy(l.history, buf[len(buf)-l.delay:])
	return tensor.NewMatFromData(1, x.C, buf[:x.C]), nil
}

func stereo(n int, seed int64) tensor.Mat {
	x := tensor.NewMat(2, n)
	tensor.FillRand(&x, seed, 0.5)
	return x
}

func TestRenderPreservesLength(t *testing.T) {
	t.Parallel()
	inst := wavemodel.NewInstance(models.NewGain())
	x := stereo(1000, 1)

	y, stats, err := Render(context.Background(), inst, x, Options{BufferSize: 256})
	require.NoError(t, err)
	assert.Equal(t, 2, y.R)
	assert.Equal(t, 1000, y.C)
	assert.Equal(t, 4, stats.Blocks, "last block is padded")
	assert.InDeltaSlice(t, x.Data, y.Data, 1e-6)
}

func TestRenderDefaultBufferSize(t *testing.T) {
	t.Parallel()
	inst := wavemodel.NewInstance(models.NewGain())
	_, stats, err := Render(context.Background(), inst, stereo(1024, 2), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferSize, stats.BufferSize)
	assert.Equal(t, 2, stats.Blocks)
}

func TestRenderConstantParams(t *testing.T) {
	t.Parallel()
	inst := wavemodel.NewInstance(models.NewGain())
	x := stereo(300, 3)

	y, _, err := Render(context.Background(), inst, x, Options{BufferSize: 128, Params: []float32{0.25}})
	require.NoError(t, err)
	for i := range x.Data {
		assert.InDelta(t, x.Data[i]/2, y.Data[i], 1e-6)
	}
}

func TestRenderCompensatesDelayWithFlush(t *testing.T) {
	t.Parallel()
	l, err := models.NewLookahead(64)
	require.NoError(t, err)
	inst := wavemodel.NewInstance(l)
	x := stereo(1000, 4)

	y, stats, err := Render(context.Background(), inst, x, Options{BufferSize: 256, CompensateDelay: true})
	require.NoError(t, err)
	assert.Equal(t, 64, stats.DelaySamples)
	assert.True(t, stats.Flushed)
	assert.Equal(t, 1000, y.C)
	assert.Equal(t, x.Rows(), y.Rows(), "signal under the ceiling comes back aligned")
}

func TestRenderWithoutCompensationKeepsLatency(t *testing.T) {
	t.Parallel()
	l, err := models.NewLookahead(32)
	require.NoError(t, err)
	inst := wavemodel.NewInstance(l)
	x := stereo(512, 5)

	y, stats, err := Render(context.Background(), inst, x, Options{BufferSize: 128})
	require.NoError(t, err)
	assert.False(t, stats.Flushed)
	for c := 0; c < 2; c++ {
		assert.Equal(t, x.Row(c)[:480], y.Row(c)[32:])
	}
}

func TestRenderDrainsModelThatCannotFlush(t *testing.T) {
	t.Parallel()
	inst := wavemodel.NewInstance(&latent{delay: 100})
	x := tensor.NewMat(1, 200)
	tensor.FillRand(&x, 6, 0.5)

	y, stats, err := Render(context.Background(), inst, x, Options{BufferSize: 64, CompensateDelay: true})
	require.NoError(t, err)
	assert.False(t, stats.Flushed)
	assert.Equal(t, 5, stats.Blocks, "four input blocks plus one silent block")
	assert.Equal(t, x.Row(0), y.Row(0))
}

func TestRenderCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inst := wavemodel.NewInstance(models.NewGain())

	_, _, err := Render(ctx, inst, stereo(128, 7), Options{BufferSize: 64})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderPropagatesValidationErrors(t *testing.T) {
	t.Parallel()
	fir, err := models.NewMovingAverage(4)
	require.NoError(t, err)
	inst := wavemodel.NewInstance(fir)

	_, _, err = Render(context.Background(), inst, stereo(128, 8), Options{BufferSize: 64})
	assert.ErrorIs(t, err, wavemodel.ErrInvalidWaveform)
}
