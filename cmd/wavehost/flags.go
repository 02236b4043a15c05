package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

var (
	modelName    string
	delaySamples int64
	kernelFlag   string
	taps         int64
	kernelsDir   string
	configFile   string
	logLevel     string
	logFormat    string
	debug        bool
)

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "registered model name (see `wavehost models`)",
			Value:       "gain",
			Destination: &modelName,
		},
		&cli.Int64Flag{
			Name:        "delay-samples",
			Usage:       "lookahead of the lookahead model in samples (0 = model default)",
			Destination: &delaySamples,
		},
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "fir kernel: a .safetensors path or a name in the kernels directory",
			Destination: &kernelFlag,
		},
		&cli.Int64Flag{
			Name:        "taps",
			Usage:       "moving-average length for fir when no kernel is given (0 = model default)",
			Destination: &taps,
		},
		&cli.StringFlag{
			Name:        "kernels-dir",
			Usage:       "directory containing .safetensors kernels",
			Destination: &kernelsDir,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// modelOptions collects the model flags, resolving --kernel against the
// kernels directory.
func modelOptions(cmd *cli.Command) (models.Options, error) {
	applyKernelsConfig(cmd, cfg)
	path, err := resolveKernelPath(kernelFlag, kernelsDir)
	if err != nil {
		return models.Options{}, err
	}
	return models.Options{
		DelaySamples: int(delaySamples),
		KernelPath:   path,
		Taps:         int(taps),
	}, nil
}

func buildModel(cmd *cli.Command) (wavemodel.Model, models.Options, error) {
	opts, err := modelOptions(cmd)
	if err != nil {
		return nil, opts, err
	}
	m, err := models.New(modelName, opts)
	return m, opts, err
}
