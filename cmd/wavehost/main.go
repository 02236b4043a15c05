package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/wavehost/internal/logger"
)

// cfg is the config file loaded before any command runs.
var cfg Config

func main() {
	app := &cli.Command{
		Name:  "wavehost",
		Usage: "Host and inspect waveform-to-waveform audio models",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.yaml (default ~/.config/wavehost/config.yaml)",
				Destination: &configFile,
			},
		),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			modelsCmd(),
			infoCmd(),
			processCmd(),
			exportCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = configPath()
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config %s: %v", path, err), 1)
	}
	cfg = loaded
	applyLogConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.ForFormat(os.Stderr, logFormat, level)
	return logger.WithContext(ctx, log), nil
}
