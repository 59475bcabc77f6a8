package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"
)

// Sweeper terminates external processes left behind by an abandoned repair.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc func(ctx context.Context) error

func (f SweepFunc) Sweep(ctx context.Context) error {
	return f(ctx)
}

// ProcessSweeper kills every process whose command line contains pattern,
// except the current one.
type ProcessSweeper struct {
	pattern string
	limit   int
}

func NewProcessSweeper(pattern string) ProcessSweeper {
	return ProcessSweeper{pattern: pattern, limit: 4}
}

func (s ProcessSweeper) Pattern() string {
	return s.pattern
}

// Sweep is racy by nature: matching processes may exit or appear while it
// runs. Processes which disappear before they are killed are not errors.
func (s ProcessSweeper) Sweep(ctx context.Context) error {
	if s.pattern == "" {
		return errors.New("sweep pattern is empty")
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("listing processes: %w", err)
	}

	self := int32(os.Getpid())
	var (
		g      errgroup.Group
		mx     sync.Mutex
		errs   []error
		killed int
	)
	g.SetLimit(max(s.limit, 1))
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		g.Go(func() error {
			ok, err := s.kill(ctx, p)
			mx.Lock()
			defer mx.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				killed++
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "orphaned processes swept", "pattern", s.pattern, "killed", killed, "errors", len(errs))
	return errors.Join(errs...)
}

func (s ProcessSweeper) kill(ctx context.Context, p *process.Process) (bool, error) {
	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil || !strings.Contains(cmdline, s.pattern) {
		// gone already or not ours to read
		return false, nil
	}
	slog.DebugContext(ctx, "killing orphaned process", "pid", p.Pid, "cmdline", cmdline)
	if err := p.KillWithContext(ctx); err != nil {
		if running, rerr := p.IsRunningWithContext(ctx); rerr == nil && !running {
			return false, nil
		}
		return false, fmt.Errorf("killing pid %d: %w", p.Pid, err)
	}
	return true, nil
}
