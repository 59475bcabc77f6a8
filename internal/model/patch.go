package model

// Patch is a candidate fix produced by the repair engine. The fields are
// passed through as the engine reports them.
type Patch struct {
	Type       string `json:"type,omitempty"`
	Class      string `json:"class,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Expression string `json:"expression"`
}
