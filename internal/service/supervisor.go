package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/metrics"
	"github.com/CZERTAINLY/Repairer/internal/model"
)

// State is the lifecycle of a supervised repair invocation.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StatePatched
	StateTimedOut
	StateFailed
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRunning:
		return "RUNNING"
	case StatePatched:
		return "PATCHED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateFailed:
		return "FAILED"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s >= StatePatched
}

// Outcome is the terminal result of Supervise. It is one of Patched,
// TimedOut, Failed or Interrupted.
type Outcome interface {
	State() State
	// Message is the human readable diagnostic of the outcome.
	Message() string
	outcome()
}

type Patched struct {
	Patches []model.Patch
}

type TimedOut struct {
	Budget time.Duration
}

type Failed struct {
	Err error
}

type Interrupted struct {
	Err error
}

func (Patched) State() State     { return StatePatched }
func (TimedOut) State() State    { return StateTimedOut }
func (Failed) State() State      { return StateFailed }
func (Interrupted) State() State { return StateInterrupted }

func (o Patched) Message() string {
	return fmt.Sprintf("repair produced %d patches", len(o.Patches))
}

func (o TimedOut) Message() string {
	return "timeout: execution time > " + o.Budget.String()
}

func (o Failed) Message() string {
	if o.Err == nil {
		return "repair failed"
	}
	return o.Err.Error()
}

func (o Interrupted) Message() string {
	return fmt.Sprintf("interrupted: %v", o.Err)
}

func (Patched) outcome()     {}
func (TimedOut) outcome()    {}
func (Failed) outcome()      {}
func (Interrupted) outcome() {}

// Task is the long running repair computation. It may ignore ctx.
type Task func(ctx context.Context) ([]model.Patch, error)

type Supervisor struct {
	sweeper      Sweeper
	sweepTimeout time.Duration
	metrics      *metrics.Metrics
}

// NewSupervisor returns a Supervisor calling sweeper after every timeout.
// A nil sweeper disables the sweep.
func NewSupervisor(sweeper Sweeper) *Supervisor {
	return &Supervisor{
		sweeper:      sweeper,
		sweepTimeout: model.DefaultSweepTimeout,
	}
}

func (s *Supervisor) WithSweepTimeout(d time.Duration) *Supervisor {
	if d > 0 {
		s.sweepTimeout = d
	}
	return s
}

func (s *Supervisor) WithMetrics(m *metrics.Metrics) *Supervisor {
	s.metrics = m
	return s
}

type taskResult struct {
	patches []model.Patch
	err     error
}

// Supervise runs task on its own goroutine and waits at most budget for it.
//
// The worker is never joined: on timeout or interruption Supervise returns
// right away and the worker keeps running detached until it ends by itself.
// Its context is cancelled on return, which the task may or may not honor.
// That is why a timeout triggers the sweeper, which kills the external
// processes the task may have left behind. Sweep failures are only logged.
func (s *Supervisor) Supervise(ctx context.Context, budget time.Duration, task Task) Outcome {
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan taskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskResult{err: fmt.Errorf("repair panicked: %v", r)}
			}
		}()
		patches, err := task(workerCtx)
		done <- taskResult{patches: patches, err: err}
	}()

	slog.DebugContext(ctx, "repair started", "budget", budget.String())
	started := time.Now()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	var outcome Outcome
	select {
	case r := <-done:
		if r.err != nil {
			outcome = Failed{Err: r.err}
		} else {
			outcome = Patched{Patches: r.patches}
		}
	case <-timer.C:
		outcome = TimedOut{Budget: budget}
	case <-ctx.Done():
		outcome = Interrupted{Err: context.Cause(ctx)}
	}

	s.metrics.IncOutcome(outcome.State().String())
	attrs := []any{"state", outcome.State().String(), "elapsed", time.Since(started).String()}
	if p, ok := outcome.(Patched); ok {
		s.metrics.AddPatches(len(p.Patches))
		slog.InfoContext(ctx, "repair finished", append(attrs, "patches", len(p.Patches))...)
	} else {
		slog.WarnContext(ctx, "repair finished", append(attrs, "reason", outcome.Message())...)
	}

	if outcome.State() == StateTimedOut {
		s.sweep(ctx)
	}
	return outcome
}

func (s *Supervisor) sweep(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sweepTimeout)
	defer cancel()
	if err := s.sweeper.Sweep(ctx); err != nil {
		s.metrics.IncSweep("failed")
		slog.ErrorContext(ctx, "sweeping orphaned processes failed", "error", err)
		return
	}
	s.metrics.IncSweep("ok")
}
