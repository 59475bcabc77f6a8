// Package build resolves the compiled artifacts of the failing module with
// the project build tool.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/service"
)

// Request describes a single build tool invocation.
type Request struct {
	POM        string
	Goals      []string
	Properties map[string]string
}

type Result struct {
	ExitCode int
}

// Tool runs the project build tool. A returned error means the tool could
// not be launched at all; a failed build is reported through Result.ExitCode.
type Tool interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Maven runs requests with the mvn command line in batch mode.
type Maven struct {
	Binary  string
	Env     []string
	Timeout time.Duration
}

func NewMaven(binary string) Maven {
	return Maven{Binary: binary}
}

func (m Maven) Args(req Request) []string {
	args := []string{"-B", "-f", req.POM}
	args = append(args, req.Goals...)
	for _, k := range slices.Sorted(maps.Keys(req.Properties)) {
		args = append(args, "-D"+k+"="+req.Properties[k])
	}
	return args
}

func (m Maven) Execute(ctx context.Context, req Request) (Result, error) {
	cmd := service.Command{
		Path:    m.Binary,
		Args:    m.Args(req),
		Env:     m.Env,
		Dir:     filepath.Dir(req.POM),
		Timeout: m.Timeout,
	}
	slog.DebugContext(ctx, "invoking maven", "path", cmd.Path, "args", cmd.Args)
	res, err := service.Run(ctx, cmd, func(ctx context.Context, line string) {
		slog.DebugContext(ctx, "maven stderr", "line", line)
	})
	if err != nil {
		return Result{}, fmt.Errorf("launching %s: %w", m.Binary, err)
	}

	if res.Err != nil {
		var exitErr *exec.ExitError
		if !errors.As(res.Err, &exitErr) {
			return Result{}, fmt.Errorf("waiting for %s: %w", m.Binary, res.Err)
		}
	}
	slog.DebugContext(ctx, "maven finished",
		"exit_code", res.ExitCode(),
		"elapsed", res.Stopped.Sub(res.Started).String(),
	)
	return Result{ExitCode: res.ExitCode()}, nil
}
