// Package repair configures and invokes the external repair engine.
package repair

import (
	"time"
)

// Localizer is the fault localization technique of the engine.
type Localizer string

const (
	LocalizerGZoltar Localizer = "GZOLTAR"
)

// Synthesis is the technique used to generate patch expressions.
type Synthesis string

const (
	SynthesisDynamoth Synthesis = "DYNAMOTH"
)

// Solver is the SMT solver backing the synthesis.
type Solver string

const (
	SolverZ3 Solver = "Z3"
)

const (
	TestTimeout = 5 * time.Second
	MaxTime     = 1 * time.Minute
)

// Config is the engine configuration of a single invocation.
type Config struct {
	TestTimeout time.Duration
	MaxTime     time.Duration
	Localizer   Localizer
	SolverPath  string
	Synthesis   Synthesis
	Solver      Solver
}

func NewConfig(solverPath string) Config {
	return Config{
		TestTimeout: TestTimeout,
		MaxTime:     MaxTime,
		Localizer:   LocalizerGZoltar,
		SolverPath:  solverPath,
		Synthesis:   SynthesisDynamoth,
		Solver:      SolverZ3,
	}
}

// WithMaxTime returns a copy of c with another wall clock budget. Non
// positive values keep the current one.
func (c Config) WithMaxTime(d time.Duration) Config {
	if d > 0 {
		c.MaxTime = d
	}
	return c
}
