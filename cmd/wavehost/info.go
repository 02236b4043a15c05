package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

// report is what `info` prints for one model.
type report struct {
	Name             string                 `json:"name" yaml:"name"`
	Metadata         wavemodel.Metadata     `json:"metadata" yaml:"metadata"`
	Capabilities     wavemodel.Capabilities `json:"capabilities" yaml:"capabilities"`
	DelaySamples     int                    `json:"delay_samples" yaml:"delay_samples"`
	PreservedMethods []string               `json:"preserved_methods" yaml:"preserved_methods"`
}

func infoCmd() *cli.Command {
	var format string

	return &cli.Command{
		Name:  "info",
		Usage: "Print the metadata record of a model",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (text, json, yaml)",
				Value:       "text",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, _, err := buildModel(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			r, err := buildReport(modelName, wavemodel.NewInstance(m))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return writeReport(os.Stdout, r, format)
		},
	}
}

func buildReport(name string, inst *wavemodel.Instance) (report, error) {
	md, err := inst.Metadata()
	if err != nil {
		return report{}, err
	}
	return report{
		Name:             name,
		Metadata:         md,
		Capabilities:     inst.Capabilities(),
		DelaySamples:     inst.MinDelaySamples(),
		PreservedMethods: wavemodel.PreservedMethods(),
	}, nil
}

func writeReport(w io.Writer, r report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return writeReportText(w, r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeReportText(w io.Writer, r report) error {
	md := r.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", md.ModelName, md.ModelVersion, r.Name)
	fmt.Fprintf(&b, "  authors:      %s\n", strings.Join(md.ModelAuthors, ", "))
	if md.ModelShortDescription != "" {
		fmt.Fprintf(&b, "  description:  %s\n", md.ModelShortDescription)
	}
	fmt.Fprintf(&b, "  channels:     in %s, out %s\n", monoLabel(md.IsInputMono), monoLabel(md.IsOutputMono))
	fmt.Fprintf(&b, "  sample rates: %s\n", listOrAny(md.NativeSampleRates))
	fmt.Fprintf(&b, "  buffer sizes: %s\n", listOrAny(md.NativeBufferSizes))
	fmt.Fprintf(&b, "  delay:        %d samples\n", r.DelaySamples)
	fmt.Fprintf(&b, "  mix:          wet %g, dry %g, gain %g\n", md.WetDefaultValue, md.DryDefaultValue, md.OutputGainDefaultValue)
	if len(md.NeutoneParameters) > 0 {
		b.WriteString("  parameters:\n")
		for _, p := range sortedParams(md.NeutoneParameters) {
			fmt.Fprintf(&b, "    %-10s default %-6s %s\n", p["name"], p["default_value"], p["description"])
		}
	}
	c := r.Capabilities
	fmt.Fprintf(&b, "  hooks:        remap=%t delay=%t buffer_size=%t flush=%t reset=%t\n",
		c.RemapParams, c.MinDelaySamples, c.SetBufferSize, c.Flush, c.Reset)
	_, err := io.WriteString(w, b.String())
	return err
}

func monoLabel(mono bool) string {
	if mono {
		return "mono"
	}
	return "stereo"
}

func listOrAny(v []int) string {
	if len(v) == 0 {
		return "any"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

func sortedParams(params map[string]map[string]string) []map[string]string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]map[string]string, len(names))
	for i, name := range names {
		out[i] = params[name]
	}
	return out
}
