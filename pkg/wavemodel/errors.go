package wavemodel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWaveform reports a waveform that failed shape, channel or
	// finiteness validation.
	ErrInvalidWaveform = errors.New("invalid waveform")
	// ErrParamCount reports a parameter buffer whose row count does not match
	// the number of declared parameters. It indicates a host contract
	// violation.
	ErrParamCount = errors.New("parameter count mismatch")
	// ErrInvalidMetadata reports core model information that cannot be
	// turned into a metadata record.
	ErrInvalidMetadata = errors.New("invalid model metadata")
	// ErrModelOutput marks a failure on the model side of a forward pass:
	// the model returned an error or produced an invalid waveform.
	ErrModelOutput = errors.New("model output rejected")
)

type contractError struct {
	kind error
	msg  string
}

func (e contractError) Error() string {
	return e.kind.Error() + ": " + e.msg
}

func (e contractError) Unwrap() error {
	return e.kind
}

func waveformError(format string, args ...any) error {
	return contractError{kind: ErrInvalidWaveform, msg: fmt.Sprintf(format, args...)}
}

func paramCountError(got, want int) error {
	return contractError{kind: ErrParamCount, msg: fmt.Sprintf("got %d rows, %d parameters declared", got, want)}
}

func paramWidthError(got, want int) error {
	return contractError{kind: ErrParamCount, msg: fmt.Sprintf("got %d values per parameter, want %d", got, want)}
}

func metadataError(format string, args ...any) error {
	return contractError{kind: ErrInvalidMetadata, msg: fmt.Sprintf(format, args...)}
}
