package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/internal/wavio"
	"github.com/samcharles93/wavehost/pkg/tensor"
)

func TestProcessCommandRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "take.wav")
	out := filepath.Join(dir, "render", "take.limited.wav")

	x := tensor.NewMat(2, 3000)
	tensor.FillRand(&x, 11, 0.5)
	if _, err := wavio.Write(in, x, 48000, 16); err != nil {
		t.Fatalf("write input: %v", err)
	}

	ctx := logger.WithContext(context.Background(), logger.Discard())
	args := []string{"process", "-m", "lookahead", "--delay-samples", "32", "-b", "256", "-i", in, "-o", out}
	if err := processCmd().Run(ctx, args); err != nil {
		t.Fatalf("process: %v", err)
	}

	src, err := wavio.Read(in)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	got, err := wavio.Read(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got.SampleRate != 48000 || got.BitDepth != 16 {
		t.Fatalf("unexpected format: %d Hz %d-bit", got.SampleRate, got.BitDepth)
	}
	if got.Samples.R != 2 || got.Samples.C != 3000 {
		t.Fatalf("unexpected shape %dx%d", got.Samples.R, got.Samples.C)
	}
	for i := range src.Samples.Data {
		if got.Samples.Data[i] != src.Samples.Data[i] {
			t.Fatalf("sample %d: delay compensation broke alignment: got %v want %v",
				i, got.Samples.Data[i], src.Samples.Data[i])
		}
	}
}
