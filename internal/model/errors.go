package model

import (
	"errors"
)

var (
	ErrBuildStep  = errors.New("build step failed")
	ErrDescriptor = errors.New("reading classpath descriptor failed")
	ErrSourceDir  = errors.New("source dir is not a readable directory")
)
