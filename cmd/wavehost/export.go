package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/internal/safetensors"
	"github.com/samcharles93/wavehost/internal/version"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

const (
	manifestFile     = "manifest.json"
	exportKernelFile = "kernel" + kernelExt
)

// Manifest is the self-describing record written next to an exported
// model. Options.KernelPath is relative to the manifest.
type Manifest struct {
	Model             string                 `json:"model"`
	Options           models.Options         `json:"options"`
	Metadata          wavemodel.Metadata     `json:"metadata"`
	Capabilities      wavemodel.Capabilities `json:"capabilities"`
	PreservedMethods  []string               `json:"preserved_methods"`
	DefaultParameters []float32              `json:"default_parameters"`
	DelaySamples      int                    `json:"delay_samples"`
	Host              version.Info           `json:"host"`
}

func exportCmd() *cli.Command {
	var outDir string

	return &cli.Command{
		Name:  "export",
		Usage: "Write a model manifest (and its kernel) to a directory",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "out-dir",
				Aliases:     []string{"o"},
				Usage:       "output directory (default $WAVEHOST_OUT_DIR/<model> or ./out/<model>)",
				Destination: &outDir,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			m, opts, err := buildModel(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			dir := strings.TrimSpace(outDir)
			if dir == "" {
				base := strings.TrimSpace(os.Getenv(envOutDir))
				if base == "" {
					base = filepath.Join(".", "out")
				}
				dir = filepath.Join(base, modelName)
			}
			manifest, err := exportModel(dir, modelName, m, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("exported", "model", modelName, "dir", dir, "name", manifest.Metadata.ModelName)
			return nil
		},
	}
}

// exportModel writes manifest.json into dir. FIR models also get their taps
// written as kernel.safetensors so the export reloads without the source
// kernel.
func exportModel(dir, name string, m wavemodel.Model, opts models.Options) (Manifest, error) {
	inst := wavemodel.NewInstance(m)
	md, err := inst.Metadata()
	if err != nil {
		return Manifest{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, err
	}

	opts.KernelPath = ""
	if fir, ok := m.(*models.FIR); ok {
		kernel := fir.Kernel()
		err := safetensors.Write(filepath.Join(dir, exportKernelFile), []safetensors.Tensor{
			{Name: models.KernelTensor, Shape: []int{len(kernel)}, Data: kernel},
		}, map[string]string{"name": md.ModelName})
		if err != nil {
			return Manifest{}, fmt.Errorf("write kernel: %w", err)
		}
		opts.KernelPath = exportKernelFile
		opts.Taps = 0
	}

	defaults := inst.DefaultParameters()
	manifest := Manifest{
		Model:             name,
		Options:           opts,
		Metadata:          md,
		Capabilities:      inst.Capabilities(),
		PreservedMethods:  wavemodel.PreservedMethods(),
		DefaultParameters: append([]float32{}, defaults.Data...),
		DelaySamples:      inst.MinDelaySamples(),
		Host:              version.Resolve(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), append(data, '\n'), 0o644); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}
