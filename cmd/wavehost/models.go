package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/wavehost/internal/logger"
	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/internal/safetensors"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:    "models",
		Aliases: []string{"ls"},
		Usage:   "List registered models and available kernels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "kernels-dir",
				Usage:       "directory containing .safetensors kernels",
				Destination: &kernelsDir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			fmt.Println("Models:")
			fmt.Println()
			for _, name := range models.Names() {
				m, err := models.New(name, models.Options{})
				if err != nil {
					log.Warn("cannot construct model", "model", name, "error", err)
					continue
				}
				fmt.Printf("  %-10s %-6s  %s\n", name, channelLabel(m), m.Info().ShortDescription)
			}

			applyKernelsConfig(cmd, cfg)
			dir := resolveKernelsDir(kernelsDir)
			if dir == "" {
				return nil
			}
			kernels, err := discoverKernels(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(kernels) == 0 {
				log.Info("no kernels found", "path", dir)
				return nil
			}
			fmt.Printf("\nKernels in %s:\n\n", dir)
			for _, k := range kernels {
				fmt.Println("  " + describeKernel(k))
			}
			fmt.Printf("\n%d kernel(s) found\n", len(kernels))
			return nil
		},
	}
}

func channelLabel(m wavemodel.Model) string {
	label := func(mono bool) string {
		if mono {
			return "mono"
		}
		return "stereo"
	}
	in, out := label(m.IsInputMono()), label(m.IsOutputMono())
	if in == out {
		return in
	}
	return in + ">" + out
}

// describeKernel renders one line for a kernel file: name, size and tap
// count when the header can be read.
func describeKernel(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), kernelExt)
	size := ""
	if st, err := os.Stat(path); err == nil {
		size = formatSize(st.Size())
	}
	f, err := safetensors.Open(path)
	if err != nil {
		return fmt.Sprintf("%-30s %8s  (unreadable: %v)", name, size, err)
	}
	info, ok := f.Tensor(models.KernelTensor)
	if !ok || len(info.Shape) != 1 {
		return fmt.Sprintf("%-30s %8s  (no 1-D %q tensor)", name, size, models.KernelTensor)
	}
	line := fmt.Sprintf("%-30s %8s  %d taps %s", name, size, info.Shape[0], info.DType)
	if display := f.Metadata["name"]; display != "" {
		line += "  " + display
	}
	return line
}
