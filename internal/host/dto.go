package host

import (
	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type ModelEntry struct {
	Name         string                 `json:"name"`
	Metadata     wavemodel.Metadata     `json:"metadata"`
	Capabilities wavemodel.Capabilities `json:"capabilities"`
}

type ModelList struct {
	Object           string       `json:"object"`
	Data             []ModelEntry `json:"data"`
	PreservedMethods []string     `json:"preserved_methods"`
}

type CreateSessionRequest struct {
	Model   string         `json:"model"`
	Options models.Options `json:"options"`
}

type SessionResponse struct {
	ID           string                 `json:"id"`
	Object       string                 `json:"object"`
	Model        string                 `json:"model"`
	CreatedAt    int64                  `json:"created_at"`
	Metadata     wavemodel.Metadata     `json:"metadata"`
	Capabilities wavemodel.Capabilities `json:"capabilities"`
	DelaySamples int                    `json:"delay_samples"`
}

type DeleteSessionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ForwardRequest carries one buffer. Samples is channels x frames; Params,
// when present, is parameters x frames.
type ForwardRequest struct {
	Samples [][]float32 `json:"samples"`
	Params  [][]float32 `json:"params,omitempty"`
}

type ForwardResponse struct {
	Samples      [][]float32 `json:"samples"`
	DelaySamples int         `json:"delay_samples"`
}

type DelayResponse struct {
	DelaySamples int `json:"delay_samples"`
}

type BufferSizeRequest struct {
	N int `json:"n"`
}

type BufferSizeResponse struct {
	Applied      bool `json:"applied"`
	DelaySamples int  `json:"delay_samples"`
}

type FlushResponse struct {
	Supported bool        `json:"supported"`
	Samples   [][]float32 `json:"samples,omitempty"`
}

type ResetResponse struct {
	Applied bool `json:"applied"`
}
