package wavemodel

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samcharles93/wavehost/pkg/tensor"
)

// SDKVersion is stamped into every metadata record.
const SDKVersion = "1.2.0"

// MaxParameters is the number of knobs a host exposes to a model.
const MaxParameters = 4

// Parameter declares one model knob. Values reaching the model are expected
// to lie in [0, 1].
type Parameter struct {
	Name         string
	Description  string
	DefaultValue float32
	Used         bool
}

// Mix holds the default wet/dry/output-gain settings a host should start
// with.
type Mix struct {
	Wet        float32
	Dry        float32
	OutputGain float32
}

// DefaultMix is fully wet, no dry signal, unity output gain.
func DefaultMix() Mix {
	return Mix{Wet: 1, Dry: 0, OutputGain: 1}
}

// Info is the core identity a model supplies. It is read-only input to
// metadata assembly; the contract layer never stores it.
type Info struct {
	Name                 string
	Authors              []string
	Version              string
	ShortDescription     string
	LongDescription      string
	TechnicalDescription string
	TechnicalLinks       map[string]string
	Tags                 []string
	Citation             string
	IsExperimental       bool
	Parameters           []Parameter
	// Mix is nil when the model does not specify defaults; DefaultMix is
	// used then.
	Mix                  *Mix
}

// CoreMetadata is the validated form of Info.
type CoreMetadata struct {
	ModelName              string
	ModelAuthors           []string
	ModelVersion           string
	ModelShortDescription  string
	ModelLongDescription   string
	TechnicalDescription   string
	TechnicalLinks         map[string]string
	Tags                   []string
	Citation               string
	IsExperimental         bool
	Parameters             map[string]map[string]string
	WetDefaultValue        float32
	DryDefaultValue        float32
	OutputGainDefaultValue float32
	SDKVersion             string
}

// ToCoreMetadata validates info and converts it into CoreMetadata. Every
// slice and map in the result is a fresh copy.
func ToCoreMetadata(info Info) (CoreMetadata, error) {
	if strings.TrimSpace(info.Name) == "" {
		return CoreMetadata{}, metadataError("model name is required")
	}
	if len(info.Authors) == 0 {
		return CoreMetadata{}, metadataError("at least one author is required")
	}
	if strings.TrimSpace(info.Version) == "" {
		return CoreMetadata{}, metadataError("model version is required")
	}
	if err := validateParameters(info.Parameters); err != nil {
		return CoreMetadata{}, err
	}
	mix := DefaultMix()
	if info.Mix != nil {
		mix = *info.Mix
	}
	if !unitRange(mix.Wet) || !unitRange(mix.Dry) {
		return CoreMetadata{}, metadataError("wet/dry defaults must lie in [0, 1]")
	}
	if !finite(mix.OutputGain) || mix.OutputGain < 0 {
		return CoreMetadata{}, metadataError("output gain default must be a non-negative number")
	}

	params := make(map[string]map[string]string, len(info.Parameters))
	for _, p := range info.Parameters {
		params[p.Name] = map[string]string{
			"name":          p.Name,
			"description":   p.Description,
			"default_value": strconv.FormatFloat(float64(p.DefaultValue), 'g', -1, 32),
			"used":          strconv.FormatBool(p.Used),
		}
	}

	return CoreMetadata{
		ModelName:              info.Name,
		ModelAuthors:           slices.Clone(info.Authors),
		ModelVersion:           info.Version,
		ModelShortDescription:  info.ShortDescription,
		ModelLongDescription:   info.LongDescription,
		TechnicalDescription:   info.TechnicalDescription,
		TechnicalLinks:         cloneStringMap(info.TechnicalLinks),
		Tags:                   slices.Clone(info.Tags),
		Citation:               info.Citation,
		IsExperimental:         info.IsExperimental,
		Parameters:             params,
		WetDefaultValue:        mix.Wet,
		DryDefaultValue:        mix.Dry,
		OutputGainDefaultValue: mix.OutputGain,
		SDKVersion:             SDKVersion,
	}, nil
}

// DefaultParameterValues returns the declared defaults as an (n x 1) matrix,
// one row per parameter in declaration order.
func DefaultParameterValues(params []Parameter) tensor.Mat {
	m := tensor.NewMat(len(params), 1)
	for i, p := range params {
		m.Row(i)[0] = p.DefaultValue
	}
	return m
}

func validateParameters(params []Parameter) error {
	if len(params) > MaxParameters {
		return metadataError("%d parameters declared, at most %d supported", len(params), MaxParameters)
	}
	seen := make(map[string]struct{}, len(params))
	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return metadataError("parameter %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return metadataError("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if !unitRange(p.DefaultValue) {
			return metadataError("parameter %q default %v outside [0, 1]", p.Name, p.DefaultValue)
		}
	}
	return nil
}

func unitRange(v float32) bool {
	return finite(v) && v >= 0 && v <= 1
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
