package wavemodel

import "slices"

// Metadata describes a waveform model to the host UI. It is assembled on
// every request from the live model and never cached.
type Metadata struct {
	ModelName              string                       `json:"model_name" yaml:"model_name"`
	ModelAuthors           []string                     `json:"model_authors" yaml:"model_authors"`
	ModelVersion           string                       `json:"model_version" yaml:"model_version"`
	ModelShortDescription  string                       `json:"model_short_description" yaml:"model_short_description"`
	ModelLongDescription   string                       `json:"model_long_description" yaml:"model_long_description"`
	TechnicalDescription   string                       `json:"technical_description" yaml:"technical_description"`
	TechnicalLinks         map[string]string            `json:"technical_links" yaml:"technical_links"`
	Tags                   []string                     `json:"tags" yaml:"tags"`
	Citation               string                       `json:"citation" yaml:"citation"`
	IsExperimental         bool                         `json:"is_experimental" yaml:"is_experimental"`
	NeutoneParameters      map[string]map[string]string `json:"neutone_parameters" yaml:"neutone_parameters"`
	WetDefaultValue        float32                      `json:"wet_default_value" yaml:"wet_default_value"`
	DryDefaultValue        float32                      `json:"dry_default_value" yaml:"dry_default_value"`
	OutputGainDefaultValue float32                      `json:"output_gain_default_value" yaml:"output_gain_default_value"`
	IsInputMono            bool                         `json:"is_input_mono" yaml:"is_input_mono"`
	IsOutputMono           bool                         `json:"is_output_mono" yaml:"is_output_mono"`
	NativeSampleRates      []int                        `json:"native_sample_rates" yaml:"native_sample_rates"`
	NativeBufferSizes      []int                        `json:"native_buffer_sizes" yaml:"native_buffer_sizes"`
	SDKVersion             string                       `json:"sdk_version" yaml:"sdk_version"`
}

// ToMetadata merges the model's core metadata with its channel and
// compatibility facts. Errors from core metadata validation are returned
// unchanged.
func ToMetadata(m Model) (Metadata, error) {
	core, err := ToCoreMetadata(m.Info())
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ModelName:              core.ModelName,
		ModelAuthors:           core.ModelAuthors,
		ModelVersion:           core.ModelVersion,
		ModelShortDescription:  core.ModelShortDescription,
		ModelLongDescription:   core.ModelLongDescription,
		TechnicalDescription:   core.TechnicalDescription,
		TechnicalLinks:         core.TechnicalLinks,
		Tags:                   core.Tags,
		Citation:               core.Citation,
		IsExperimental:         core.IsExperimental,
		NeutoneParameters:      core.Parameters,
		WetDefaultValue:        core.WetDefaultValue,
		DryDefaultValue:        core.DryDefaultValue,
		OutputGainDefaultValue: core.OutputGainDefaultValue,
		IsInputMono:            m.IsInputMono(),
		IsOutputMono:           m.IsOutputMono(),
		NativeSampleRates:      nonNil(slices.Clone(m.NativeSampleRates())),
		NativeBufferSizes:      nonNil(slices.Clone(m.NativeBufferSizes())),
		SDKVersion:             core.SDKVersion,
	}, nil
}

// SupportsSampleRate reports whether rate is among the native sample rates.
// An empty list accepts every rate.
func (md Metadata) SupportsSampleRate(rate int) bool {
	return len(md.NativeSampleRates) == 0 || slices.Contains(md.NativeSampleRates, rate)
}

// SupportsBufferSize reports whether n is among the native buffer sizes. An
// empty list accepts every size.
func (md Metadata) SupportsBufferSize(n int) bool {
	return len(md.NativeBufferSizes) == 0 || slices.Contains(md.NativeBufferSizes, n)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
