package repair

import (
	"context"
	"slices"

	"github.com/CZERTAINLY/Repairer/internal/model"
)

// ProjectReference is what the engine needs to know about the project.
type ProjectReference struct {
	SourceDir string   `json:"source_dir"`
	ClassPath string   `json:"class_path"`
	Tests     []string `json:"tests"`
}

// Engine synthesizes patches. Build may run for an unbounded time and is not
// required to honor ctx.
type Engine interface {
	Build(ctx context.Context, ref ProjectReference, cfg Config) ([]model.Patch, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, ref ProjectReference, cfg Config) ([]model.Patch, error)

func (f EngineFunc) Build(ctx context.Context, ref ProjectReference, cfg Config) ([]model.Patch, error) {
	return f(ctx, ref, cfg)
}

// Invoker owns one call into the engine.
type Invoker struct {
	engine Engine
	ref    ProjectReference
	cfg    Config
}

func NewInvoker(engine Engine, res model.ArtifactResolution, tests model.TestIdentifierSet, cfg Config) Invoker {
	return Invoker{
		engine: engine,
		ref: ProjectReference{
			SourceDir: res.SourceDir,
			ClassPath: res.ClassPath,
			Tests:     tests.Sorted(),
		},
		cfg: cfg,
	}
}

func (i Invoker) Reference() ProjectReference {
	ref := i.ref
	ref.Tests = slices.Clone(i.ref.Tests)
	return ref
}

func (i Invoker) Config() Config {
	return i.cfg
}

func (i Invoker) Run(ctx context.Context) ([]model.Patch, error) {
	return i.engine.Build(ctx, i.Reference(), i.cfg)
}
