package model

import (
	"context"
	"encoding/json"
)

// Report is the document the repair step hands over to the host pipeline.
type Report struct {
	InvocationID string              `json:"invocation_id"`
	State        string              `json:"state"`
	Outcome      string              `json:"outcome"`
	Resolution   *ArtifactResolution `json:"resolution,omitempty"`
	Tests        []string            `json:"tests,omitempty"`
	Patches      []Patch             `json:"patches"`
	Errors       []string            `json:"errors"`
}

func (r Report) MarshalIndent() ([]byte, error) {
	if r.Patches == nil {
		r.Patches = []Patch{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Uploader delivers a serialized report somewhere.
type Uploader interface {
	Upload(ctx context.Context, raw []byte) error
}

type UploadCloser interface {
	Uploader
	Close() error
}
