package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

const (
	envKernelsDir = "WAVEHOST_KERNELS_DIR"
	envOutDir     = "WAVEHOST_OUT_DIR"
	kernelExt     = ".safetensors"
)

// resolveKernelPath turns a --kernel value into a file path. Values that
// look like paths are used as given; bare names are looked up in the
// kernels directory.
func resolveKernelPath(kernelFlag, kernelsDir string) (string, error) {
	kernelFlag = strings.TrimSpace(kernelFlag)
	if kernelFlag == "" {
		return "", nil
	}
	if looksLikePath(kernelFlag) {
		if _, err := os.Stat(kernelFlag); err == nil {
			return filepath.Clean(kernelFlag), nil
		}
	}

	dir := resolveKernelsDir(kernelsDir)
	if dir == "" {
		return "", fmt.Errorf("kernel %q not found; set --kernels-dir or %s", kernelFlag, envKernelsDir)
	}
	for _, candidate := range []string{kernelFlag, kernelFlag + kernelExt} {
		full := filepath.Join(dir, candidate)
		if st, err := os.Stat(full); err == nil && !st.IsDir() {
			return full, nil
		}
	}
	return "", fmt.Errorf("kernel %q not found in %s", kernelFlag, dir)
}

func resolveKernelsDir(flag string) string {
	if dir := strings.TrimSpace(flag); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(envKernelsDir))
}

func looksLikePath(s string) bool {
	return strings.ContainsRune(s, filepath.Separator) || strings.HasSuffix(strings.ToLower(s), kernelExt)
}

func discoverKernels(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kernels directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("kernels path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	kernels := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), kernelExt) {
			continue
		}
		kernels = append(kernels, filepath.Join(dir, e.Name()))
	}
	sort.Strings(kernels)
	return kernels, nil
}

// resolveOutputPath picks where process writes its result. An explicit
// --out wins; otherwise the file lands in $WAVEHOST_OUT_DIR (or ./out) as
// <input>.<model>.wav. The bool reports whether the path was defaulted.
func resolveOutputPath(inPath, outFlag, model string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outPath := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", false, err
		}
		return outPath, false, nil
	}

	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, fmt.Errorf("invalid input path: %q", inPath)
	}

	outDir := strings.TrimSpace(os.Getenv(envOutDir))
	if outDir == "" {
		outDir = filepath.Join(".", "out")
	}
	outPath := filepath.Join(outDir, base+"."+model+".wav")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", true, err
	}
	return outPath, true, nil
}

// parseParamValues applies name=value overrides on top of the declared
// defaults. It returns nil when there are no overrides.
func parseParamValues(declared []wavemodel.Parameter, pairs []string) ([]float32, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make([]float32, len(declared))
	index := make(map[string]int, len(declared))
	for i, p := range declared {
		values[i] = p.DefaultValue
		index[p.Name] = i
	}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q: expected name=value", pair)
		}
		name = strings.TrimSpace(name)
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("parameter %s: %v outside [0, 1]", name, v)
		}
		values[i] = float32(v)
	}
	return values, nil
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
