package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/internal/render"
	"github.com/samcharles93/wavehost/internal/wavio"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

func processCmd() *cli.Command {
	var (
		inPath          string
		outPath         string
		bufferSize      int64
		bitDepth        int64
		compensateDelay bool
		params          []string
	)

	return &cli.Command{
		Name:  "process",
		Usage: "Render a WAV file through a model",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input .wav file",
				Required:    true,
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .wav file (default $WAVEHOST_OUT_DIR or ./out)",
				Destination: &outPath,
			},
			&cli.Int64Flag{
				Name:        "buffer-size",
				Aliases:     []string{"b"},
				Usage:       "samples per forward pass",
				Value:       render.DefaultBufferSize,
				Destination: &bufferSize,
			},
			&cli.Int64Flag{
				Name:        "bit-depth",
				Usage:       "output bit depth (8, 16, 24, 32; 0 = same as input)",
				Destination: &bitDepth,
			},
			&cli.BoolFlag{
				Name:        "compensate-delay",
				Usage:       "remove model latency so output lines up with input",
				Value:       true,
				Destination: &compensateDelay,
			},
			&cli.StringSliceFlag{
				Name:        "param",
				Aliases:     []string{"p"},
				Usage:       "parameter override as name=value in [0, 1] (repeatable)",
				Destination: &params,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyProcessConfig(cmd, cfg, &bufferSize, &bitDepth)

			m, _, err := buildModel(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			inst := wavemodel.NewInstance(m)
			md, err := inst.Metadata()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			values, err := parseParamValues(m.Info().Parameters, params)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			in, err := wavio.Read(inPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if !md.SupportsSampleRate(in.SampleRate) {
				log.Warn("sample rate is not native to the model; processing anyway",
					"sample_rate", in.SampleRate, "native", md.NativeSampleRates)
			}
			depth := int(bitDepth)
			if depth == 0 {
				depth = in.BitDepth
			}
			out, defaulted, err := resolveOutputPath(inPath, outPath, modelName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			x := wavio.Channels(in.Samples, inst.IsInputMono())
			log.Info("rendering",
				"model", modelName,
				"in", inPath,
				"channels", fmt.Sprintf("%d>%d", in.Samples.R, x.R),
				"frames", x.C,
				"sample_rate", in.SampleRate,
			)
			start := time.Now()
			y, stats, err := render.Render(ctx, inst, x, render.Options{
				BufferSize:      int(bufferSize),
				CompensateDelay: compensateDelay,
				Params:          values,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			clipped, err := wavio.Write(out, y, in.SampleRate, depth)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if clipped > 0 {
				log.Warn("output clipped", "samples", clipped)
			}
			elapsed := time.Since(start)
			log.Info("done",
				"out", out,
				"defaulted_out", defaulted,
				"blocks", stats.Blocks,
				"delay_samples", stats.DelaySamples,
				"flushed", stats.Flushed,
				"elapsed", elapsed,
				"realtime", realtimeFactor(y.C, in.SampleRate, elapsed),
			)
			return nil
		},
	}
}

// realtimeFactor is audio duration divided by processing time.
func realtimeFactor(frames, sampleRate int, elapsed time.Duration) string {
	if elapsed <= 0 || sampleRate <= 0 {
		return "n/a"
	}
	audio := float64(frames) / float64(sampleRate)
	return fmt.Sprintf("%.1fx", audio/elapsed.Seconds())
}
