// Package step is the repair step of the host pipeline. It glues the failing
// test collector, the artifact resolver and the supervised repair invocation.
package step

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/build"
	"github.com/CZERTAINLY/Repairer/internal/failing"
	"github.com/CZERTAINLY/Repairer/internal/log"
	"github.com/CZERTAINLY/Repairer/internal/model"
	"github.com/CZERTAINLY/Repairer/internal/repair"
	"github.com/CZERTAINLY/Repairer/internal/service"
	"github.com/google/uuid"
)

// State is the externally visible state of the step. Only a patched
// outcome sets it.
type State string

const (
	StateUnset   State = "UNSET"
	StatePatched State = "PATCHED"
)

// Input is what the pipeline knows before the step runs.
type Input struct {
	Failures   model.FailureRecord
	Project    build.Project
	SolverPath string
	// MaxTime overrides repair.MaxTime when positive.
	MaxTime time.Duration
}

type Step struct {
	input      Input
	resolver   build.Resolver
	engine     repair.Engine
	supervisor *service.Supervisor

	running sync.Mutex // serializes Execute

	mx           sync.Mutex
	invocationID string
	state        State
	phase        service.State
	outcome      service.Outcome
	patches      []model.Patch
	tests        []string
	resolution   *model.ArtifactResolution
	ref          *repair.ProjectReference
	diag         *model.Diagnostics
}

func New(input Input, resolver build.Resolver, engine repair.Engine, supervisor *service.Supervisor) *Step {
	if supervisor == nil {
		supervisor = service.NewSupervisor(nil)
	}
	return &Step{
		input:      input,
		resolver:   resolver,
		engine:     engine,
		supervisor: supervisor,
		state:      StateUnset,
		diag:       &model.Diagnostics{},
	}
}

// Execute runs the step from a clean slate. The returned error is the
// resolution failure which prevented the repair from being invoked; outcomes
// of the repair itself are reported by Outcome and Errors.
func (s *Step) Execute(ctx context.Context) error {
	s.running.Lock()
	defer s.running.Unlock()

	id := uuid.NewString()
	ctx = log.ContextAttrs(ctx, slog.Group("repair",
		slog.String("invocation_id", id),
		slog.String("module", s.input.Project.Module),
	))
	diag := &model.Diagnostics{}
	s.reset(id, diag)

	tests := failing.Collect(ctx, s.input.Failures, diag)
	s.mx.Lock()
	s.tests = tests.Sorted()
	s.mx.Unlock()

	res, err := s.resolver.Resolve(ctx, s.input.Project, diag)
	if err != nil {
		slog.DebugContext(ctx, "repair not invoked")
		return err
	}

	cfg := repair.NewConfig(s.input.SolverPath).WithMaxTime(s.input.MaxTime)
	inv := repair.NewInvoker(s.engine, res, tests, cfg)
	ref := inv.Reference()
	s.mx.Lock()
	s.resolution = &res
	s.ref = &ref
	s.phase = service.StateRunning
	s.mx.Unlock()

	outcome := s.supervisor.Supervise(ctx, cfg.MaxTime, inv.Run)

	s.mx.Lock()
	defer s.mx.Unlock()
	s.outcome = outcome
	s.phase = outcome.State()
	switch o := outcome.(type) {
	case service.Patched:
		s.patches = slices.Clone(o.Patches)
		s.state = StatePatched
	case service.TimedOut, service.Failed, service.Interrupted:
		diag.Add(ctx, o.Message())
	}
	return nil
}

func (s *Step) reset(id string, diag *model.Diagnostics) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.invocationID = id
	s.state = StateUnset
	s.phase = service.StateNotStarted
	s.outcome = nil
	s.patches = nil
	s.tests = nil
	s.resolution = nil
	s.ref = nil
	s.diag = diag
}

func (s *Step) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Phase is the lifecycle of the last supervised invocation. It stays
// NOT_STARTED when the resolution failed.
func (s *Step) Phase() service.State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.phase
}

// Outcome is nil until a supervised invocation finished.
func (s *Step) Outcome() service.Outcome {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.outcome
}

func (s *Step) Patches() []model.Patch {
	s.mx.Lock()
	defer s.mx.Unlock()
	return slices.Clone(s.patches)
}

func (s *Step) Errors() []string {
	s.mx.Lock()
	diag := s.diag
	s.mx.Unlock()
	return diag.Errors()
}

// ProjectReference returns what the engine was given, if it was invoked.
func (s *Step) ProjectReference() (repair.ProjectReference, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.ref == nil {
		return repair.ProjectReference{}, false
	}
	ref := *s.ref
	ref.Tests = slices.Clone(ref.Tests)
	return ref, true
}

func (s *Step) Report() model.Report {
	errs := s.Errors()
	s.mx.Lock()
	defer s.mx.Unlock()
	r := model.Report{
		InvocationID: s.invocationID,
		State:        string(s.state),
		Outcome:      s.phase.String(),
		Tests:        slices.Clone(s.tests),
		Patches:      slices.Clone(s.patches),
		Errors:       errs,
	}
	if s.resolution != nil {
		res := *s.resolution
		r.Resolution = &res
	}
	return r
}
