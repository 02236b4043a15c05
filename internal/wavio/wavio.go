// Package wavio converts between PCM WAV files and channel-major float
// buffers in [-1, 1].
package wavio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/samcharles93/wavehost/pkg/tensor"
)

const pcmFormat = 1

// ErrUnsupported is returned for WAV files that are not integer PCM at a
// supported bit depth.
var ErrUnsupported = errors.New("unsupported wav file")

// Audio is a decoded WAV file.
type Audio struct {
	Samples    tensor.Mat // channels x frames
	SampleRate int
	BitDepth   int
}

// Read decodes the PCM WAV file at path.
func Read(path string) (Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return Audio{}, err
	}
	defer func() { _ = f.Close() }()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Audio{}, fmt.Errorf("%w: %s is not a valid wav file", ErrUnsupported, path)
	}
	if d.WavAudioFormat != pcmFormat {
		return Audio{}, fmt.Errorf("%w: audio format %d, only integer PCM is read", ErrUnsupported, d.WavAudioFormat)
	}
	depth := int(d.BitDepth)
	if !validDepth(depth) {
		return Audio{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, depth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("decode %s: %w", path, err)
	}

	ch := buf.Format.NumChannels
	if ch <= 0 {
		return Audio{}, fmt.Errorf("%w: %d channels", ErrUnsupported, ch)
	}
	frames := len(buf.Data) / ch
	x := tensor.NewMat(ch, frames)
	scale := fullScale(depth)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			v := buf.Data[i*ch+c]
			if depth == 8 {
				v -= 128
			}
			x.Data[c*frames+i] = float32(float64(v) / scale)
		}
	}
	return Audio{Samples: x, SampleRate: buf.Format.SampleRate, BitDepth: depth}, nil
}

// Write encodes x (channels x frames) as PCM at the given bit depth. Samples
// outside [-1, 1] are clipped. It reports how many samples were clipped.
func Write(path string, x tensor.Mat, sampleRate, bitDepth int) (clipped int, err error) {
	if !validDepth(bitDepth) {
		return 0, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, bitDepth)
	}
	if x.R <= 0 {
		return 0, fmt.Errorf("no channels to write")
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	scale := fullScale(bitDepth)
	peak := scale - 1
	data := make([]int, x.R*x.C)
	row := make([]float32, x.C)
	for c := 0; c < x.R; c++ {
		x.RowTo(row, c)
		for _, v := range row {
			if v < -1 || v > 1 {
				clipped++
			}
		}
		tensor.Clamp(row, -1, 1)
		for i, v := range row {
			s := int(float64(v)*scale + roundBias(v))
			s = min(max(s, -int(scale)), int(peak))
			if bitDepth == 8 {
				s += 128
			}
			data[i*x.R+c] = s
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, x.R, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: x.R, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return clipped, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return clipped, fmt.Errorf("finalize %s: %w", path, err)
	}
	return clipped, f.Close()
}

// ToMono averages all channels into one.
func ToMono(x tensor.Mat) tensor.Mat {
	out := tensor.NewMat(1, x.C)
	switch x.R {
	case 0:
		return out
	case 1:
		copy(out.Row(0), x.Row(0))
		return out
	}
	dst := out.Row(0)
	for c := 0; c < x.R; c++ {
		for i, v := range x.Row(c) {
			dst[i] += v
		}
	}
	tensor.Scale(dst, 1/float32(x.R))
	return out
}

// ToStereo duplicates a mono signal into two channels. Stereo input is
// copied and wider input keeps its first two channels.
func ToStereo(x tensor.Mat) tensor.Mat {
	out := tensor.NewMat(2, x.C)
	switch x.R {
	case 0:
	case 1:
		copy(out.Row(0), x.Row(0))
		copy(out.Row(1), x.Row(0))
	default:
		copy(out.Row(0), x.Row(0))
		copy(out.Row(1), x.Row(1))
	}
	return out
}

// Channels converts x to mono or stereo.
func Channels(x tensor.Mat, mono bool) tensor.Mat {
	if mono {
		return ToMono(x)
	}
	return ToStereo(x)
}

func validDepth(bits int) bool {
	switch bits {
	case 8, 16, 24, 32:
		return true
	}
	return false
}

// fullScale is the magnitude of the most negative sample at the bit depth.
func fullScale(bits int) float64 {
	return float64(int64(1) << (bits - 1))
}

func roundBias(v float32) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}
