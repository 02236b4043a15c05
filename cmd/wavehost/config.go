package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the wavehost configuration file
// (~/.config/wavehost/config.yaml). Numeric fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	KernelsDir string `yaml:"kernels_dir"`

	// Rendering defaults
	BufferSize *int64 `yaml:"buffer_size"`
	BitDepth   *int64 `yaml:"bit_depth"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wavehost", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyLogConfig applies config file defaults to the logging flags when they
// were not explicitly set.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyKernelsConfig(c *cli.Command, cfg Config) {
	if cfg.KernelsDir != "" && !c.IsSet("kernels-dir") {
		kernelsDir = cfg.KernelsDir
	}
}

// applyProcessConfig applies config file defaults to process command
// variables.
func applyProcessConfig(c *cli.Command, cfg Config, bufferSize, bitDepth *int64) {
	if cfg.BufferSize != nil && !c.IsSet("buffer-size") {
		*bufferSize = *cfg.BufferSize
	}
	if cfg.BitDepth != nil && !c.IsSet("bit-depth") {
		*bitDepth = *cfg.BitDepth
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyKernelsConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
