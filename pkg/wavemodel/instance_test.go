package wavemodel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/wavehost/pkg/tensor"
)

// passModel copies its input and records the params it was given.
type passModel struct {
	params   []Parameter
	mono     bool
	rates    []int
	sizes    []int
	lastSeen Params
	out      func(x tensor.Mat) tensor.Mat
	err      error
}

func (m *passModel) Info() Info {
	return Info{
		Name:       "pass",
		Authors:    []string{"test"},
		Version:    "0.1.0",
		Parameters: m.params,
	}
}

func (m *passModel) IsInputMono() bool        { return m.mono }
func (m *passModel) IsOutputMono() bool       { return m.mono }
func (m *passModel) NativeSampleRates() []int { return m.rates }
func (m *passModel) NativeBufferSizes() []int { return m.sizes }

func (m *passModel) DoForwardPass(x tensor.Mat, params Params) (tensor.Mat, error) {
	m.lastSeen = params
	if m.err != nil {
		return tensor.Mat{}, m.err
	}
	if m.out != nil {
		return m.out(x), nil
	}
	return x.Clone(), nil
}

// lifecycleModel implements every optional hook.
type lifecycleModel struct {
	passModel
	delay  int
	size   int
	resets int
}

func (m *lifecycleModel) MinDelaySamples() int { return m.delay }

func (m *lifecycleModel) SetBufferSize(n int) bool {
	for _, s := range m.sizes {
		if s == n {
			m.size = n
			m.delay = n / 2
			return true
		}
	}
	return false
}

func (m *lifecycleModel) Flush() (tensor.Mat, bool) {
	out := tensor.NewMat(2, m.size)
	for i := 0; i < m.delay; i++ {
		out.Row(0)[i] = 1
		out.Row(1)[i] = 1
	}
	return out, true
}

func (m *lifecycleModel) Reset() bool {
	m.resets++
	return true
}

func (m *lifecycleModel) RemapParams(params tensor.Mat) (Params, error) {
	out := Params{}
	for i, p := range m.params {
		out[p.Name] = append([]float32(nil), params.Row(i)...)
	}
	return out, nil
}

func stereo(n int) tensor.Mat {
	x := tensor.NewMat(2, n)
	tensor.FillRand(&x, 3, 0.5)
	return x
}

func twoParams() []Parameter {
	return []Parameter{
		{Name: "drive", Description: "input drive", DefaultValue: 0.25, Used: true},
		{Name: "tone", Description: "tilt eq", DefaultValue: 0.8, Used: true},
	}
}

func TestForwardWithoutParamsUsesDefaults(t *testing.T) {
	t.Parallel()
	m := &passModel{params: twoParams()}
	in := NewInstance(m)

	y, err := in.Forward(stereo(64), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, y.R)
	assert.Equal(t, 64, y.C)

	require.Len(t, m.lastSeen, 2)
	assert.InDelta(t, 0.25, m.lastSeen.Scalar("drive", -1), 1e-6)
	assert.InDelta(t, 0.8, m.lastSeen.Scalar("tone", -1), 1e-6)
}

func TestForwardMeansSuppliedParams(t *testing.T) {
	t.Parallel()
	m := &passModel{params: twoParams()}
	in := NewInstance(m)

	params := tensor.NewMatFromData(2, 4, []float32{
		0, 0, 1, 1,
		0.5, 0.5, 0.5, 0.5,
	})
	_, err := in.Forward(stereo(4), &params)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, m.lastSeen["drive"])
	assert.Equal(t, []float32{0.5}, m.lastSeen["tone"])
}

func TestRemapParamsRejectsWrongRowCount(t *testing.T) {
	t.Parallel()
	in := NewInstance(&passModel{params: twoParams()})

	for _, rows := range []int{0, 1, 3} {
		_, err := in.RemapParams(tensor.NewMat(rows, 8))
		require.Error(t, err, "rows=%d", rows)
		assert.True(t, errors.Is(err, ErrParamCount), "rows=%d: %v", rows, err)
	}

	x := stereo(8)
	bad := tensor.NewMat(1, 8)
	_, err := in.Forward(x, &bad)
	assert.ErrorIs(t, err, ErrParamCount)
}

func TestForwardRejectsParamWidthMismatch(t *testing.T) {
	t.Parallel()
	m := &passModel{params: twoParams()}
	in := NewInstance(m)

	for _, width := range []int{0, 2, 9} {
		params := tensor.NewMat(2, width)
		_, err := in.Forward(stereo(8), &params)
		require.Error(t, err, "width=%d", width)
		assert.ErrorIs(t, err, ErrParamCount, "width=%d", width)
		assert.NotErrorIs(t, err, ErrModelOutput, "width=%d", width)
	}
	assert.Nil(t, m.lastSeen, "model must not run")
}

func TestMeanParamsRejectsEmptyRows(t *testing.T) {
	t.Parallel()
	_, err := MeanParams(twoParams(), tensor.NewMat(2, 0))
	assert.ErrorIs(t, err, ErrParamCount)

	got, err := MeanParams(nil, tensor.Mat{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForwardRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	m := &passModel{}
	in := NewInstance(m)

	mono := tensor.NewMat(1, 16)
	_, err := in.Forward(mono, nil)
	assert.ErrorIs(t, err, ErrInvalidWaveform)
	assert.NotErrorIs(t, err, ErrModelOutput)
	assert.Nil(t, m.lastSeen, "model must not run on invalid input")

	nan := stereo(16)
	nan.Row(1)[3] = float32(math.NaN())
	_, err = in.Forward(nan, nil)
	assert.ErrorIs(t, err, ErrInvalidWaveform)

	_, err = in.Forward(tensor.NewMat(2, 0), nil)
	assert.ErrorIs(t, err, ErrInvalidWaveform)
}

func TestForwardRejectsInvalidOutput(t *testing.T) {
	t.Parallel()
	m := &passModel{out: func(x tensor.Mat) tensor.Mat {
		y := x.Clone()
		y.Row(0)[0] = float32(math.Inf(1))
		return y
	}}
	y, err := NewInstance(m).Forward(stereo(8), nil)
	require.ErrorIs(t, err, ErrInvalidWaveform)
	assert.ErrorIs(t, err, ErrModelOutput)
	assert.True(t, y.Empty(), "no partial output on failure")
}

func TestForwardPropagatesModelError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := NewInstance(&passModel{err: boom}).Forward(stereo(8), nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrModelOutput)
}

func TestDefaultsForOptionalHooks(t *testing.T) {
	t.Parallel()
	in := NewInstance(&passModel{sizes: []int{256}})

	assert.Equal(t, 0, in.MinDelaySamples())
	assert.False(t, in.SetBufferSize(256))
	assert.False(t, in.Reset())

	out, ok := in.Flush()
	assert.False(t, ok)
	assert.True(t, out.Empty(), "unsupported flush must report absence, not a zero buffer")

	assert.Equal(t, Capabilities{}, in.Capabilities())
}

func TestOptionalHooksAreUsed(t *testing.T) {
	t.Parallel()
	m := &lifecycleModel{passModel: passModel{params: twoParams(), sizes: []int{128, 512}}}
	in := NewInstance(m)

	for _, n := range m.NativeBufferSizes() {
		assert.True(t, in.SetBufferSize(n), "advertised size %d", n)
		assert.Equal(t, n/2, in.MinDelaySamples(), "delay is re-queried after resize")
	}
	assert.False(t, in.SetBufferSize(100))
	assert.Equal(t, 512, m.size, "rejected size leaves state untouched")

	out, ok := in.Flush()
	require.True(t, ok)
	assert.Equal(t, 512, out.C)
	assert.Equal(t, float32(1), out.Row(0)[255])
	assert.Equal(t, float32(0), out.Row(0)[256])

	assert.True(t, in.Reset())
	assert.Equal(t, 1, m.resets)

	params := tensor.NewMatFromData(2, 3, []float32{0, 0.5, 1, 1, 1, 1})
	_, err := in.Forward(stereo(3), &params)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 1}, m.lastSeen["drive"], "override keeps per-sample values")

	assert.Equal(t, Capabilities{
		RemapParams:     true,
		MinDelaySamples: true,
		SetBufferSize:   true,
		Flush:           true,
		Reset:           true,
	}, in.Capabilities())
}

func TestMonoModelValidatesSingleChannel(t *testing.T) {
	t.Parallel()
	in := NewInstance(&passModel{mono: true})
	_, err := in.Forward(tensor.NewMat(1, 32), nil)
	require.NoError(t, err)
	_, err = in.Forward(tensor.NewMat(2, 32), nil)
	assert.ErrorIs(t, err, ErrInvalidWaveform)
}
