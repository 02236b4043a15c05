package wavemodel

// Method names an export must keep reachable. The core entries come first,
// followed by the waveform-specific query and lifecycle methods.
var (
	corePreservedMethods = []string{
		"get_parameters",
		"get_default_parameters",
		"to_core_metadata",
	}
	waveformPreservedMethods = []string{
		"get_native_sample_rates",
		"get_native_buffer_sizes",
		"calc_min_delay_samples",
		"set_buffer_size",
		"flush",
		"reset",
		"to_metadata",
	}
)

// PreservedMethods returns the ordered method table an exported model must
// expose. Callers get their own copy.
func PreservedMethods() []string {
	out := make([]string, 0, len(corePreservedMethods)+len(waveformPreservedMethods))
	out = append(out, corePreservedMethods...)
	return append(out, waveformPreservedMethods...)
}

// Capabilities records which optional lifecycle hooks a model implements
// itself rather than relying on the defaults.
type Capabilities struct {
	RemapParams     bool `json:"remap_params" yaml:"remap_params"`
	MinDelaySamples bool `json:"calc_min_delay_samples" yaml:"calc_min_delay_samples"`
	SetBufferSize   bool `json:"set_buffer_size" yaml:"set_buffer_size"`
	Flush           bool `json:"flush" yaml:"flush"`
	Reset           bool `json:"reset" yaml:"reset"`
}

// CapabilitiesOf inspects m for the optional interfaces.
func CapabilitiesOf(m Model) Capabilities {
	_, remap := m.(ParamRemapper)
	_, delay := m.(DelayReporter)
	_, resize := m.(BufferResizer)
	_, flush := m.(Flusher)
	_, reset := m.(Resetter)
	return Capabilities{
		RemapParams:     remap,
		MinDelaySamples: delay,
		SetBufferSize:   resize,
		Flush:           flush,
		Reset:           reset,
	}
}
