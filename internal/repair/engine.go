package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/model"
	"github.com/CZERTAINLY/Repairer/internal/service"
)

// ExecEngine runs the repair engine as an external command, for example
// "java -jar nopol.jar". The engine is expected to print a JSON array of
// patches on stdout.
type ExecEngine struct {
	Path string
	Args []string
	Env  []string
}

func NewExecEngine(path string, args ...string) ExecEngine {
	return ExecEngine{Path: path, Args: args}
}

// CommandArgs returns the engine arguments followed by the flags describing ref and cfg.
func (e ExecEngine) CommandArgs(ref ProjectReference, cfg Config) []string {
	args := append([]string(nil), e.Args...)
	args = append(args,
		"--source", ref.SourceDir,
		"--classpath", ref.ClassPath,
		"--test", strings.Join(ref.Tests, ","),
		"--localizer", strings.ToLower(string(cfg.Localizer)),
		"--synthesis", strings.ToLower(string(cfg.Synthesis)),
		"--solver", strings.ToLower(string(cfg.Solver)),
		"--maxTime", strconv.Itoa(minutes(cfg.MaxTime)),
		"--timeout", strconv.Itoa(int(cfg.TestTimeout.Seconds())),
		"--json",
	)
	if cfg.SolverPath != "" {
		args = append(args, "--solver-path", cfg.SolverPath)
	}
	return args
}

func (e ExecEngine) Build(ctx context.Context, ref ProjectReference, cfg Config) ([]model.Patch, error) {
	cmd := service.Command{
		Path: e.Path,
		Args: e.CommandArgs(ref, cfg),
		Env:  e.Env,
	}
	slog.DebugContext(ctx, "starting repair engine", "path", cmd.Path, "tests", len(ref.Tests))
	res, err := service.Run(ctx, cmd, func(ctx context.Context, line string) {
		slog.DebugContext(ctx, "repair engine stderr", "line", line)
	})
	if err != nil {
		return nil, fmt.Errorf("starting repair engine: %w", err)
	}
	if res.Err != nil {
		return nil, fmt.Errorf("repair engine failed: %w", res.Err)
	}
	return decodePatches(res.Stdout.Bytes())
}

func decodePatches(b []byte) ([]model.Patch, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	var patches []model.Patch
	if err := json.Unmarshal(b, &patches); err != nil {
		return nil, fmt.Errorf("decoding repair engine output: %w", err)
	}
	return patches, nil
}

// minutes rounds d up to whole minutes, at least one.
func minutes(d time.Duration) int {
	m := int((d + time.Minute - 1) / time.Minute)
	return max(m, 1)
}
