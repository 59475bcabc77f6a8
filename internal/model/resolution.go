package model

// ArtifactResolution is what the build tool resolved for the failing module.
type ArtifactResolution struct {
	SourceDir string `json:"source_dir"`
	ClassPath string `json:"class_path"`
}
