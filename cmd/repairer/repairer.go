package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/build"
	"github.com/CZERTAINLY/Repairer/internal/log"
	"github.com/CZERTAINLY/Repairer/internal/metrics"
	"github.com/CZERTAINLY/Repairer/internal/model"
	"github.com/CZERTAINLY/Repairer/internal/repair"
	"github.com/CZERTAINLY/Repairer/internal/service"
	"github.com/CZERTAINLY/Repairer/internal/step"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	flagFailures string
	flagRoot     string
	flagModule   string
	flagSolver   string
	flagMaxTime  time.Duration
	flagPattern  string
)

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("repairer",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	failures, err := loadFailures(flagFailures)
	if err != nil {
		return err
	}
	project, err := newProject(flagRoot, flagModule)
	if err != nil {
		return err
	}

	uploaders, err := service.Uploaders(ctx, config.Report)
	if err != nil {
		return err
	}
	defer service.CloseUploaders(ctx, uploaders)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	s := step.New(
		step.Input{
			Failures:   failures,
			Project:    project,
			SolverPath: firstNonEmpty(flagSolver, config.Repair.SolverPath),
			MaxTime:    firstPositive(flagMaxTime, config.Repair.MaxTime),
		},
		build.NewResolver(maven(config.Maven)).WithMetrics(m),
		engine(config.Repair.Engine),
		service.NewSupervisor(service.NewProcessSweeper(config.Sweep.Pattern)).
			WithSweepTimeout(config.Sweep.Timeout).
			WithMetrics(m),
	)
	runErr := s.Execute(ctx)

	raw, err := s.Report().MarshalIndent()
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("encoding repair report: %w", err))
	}
	errs := []error{runErr}
	if err := service.Publish(ctx, raw, uploaders...); err != nil {
		errs = append(errs, fmt.Errorf("publishing repair report: %w", err))
	}
	if config.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(config.Metrics.Textfile, registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func doSweep(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("repairer",
		slog.String("cmd", "sweep"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	pattern := firstNonEmpty(flagPattern, config.Sweep.Pattern)
	return service.NewProcessSweeper(pattern).Sweep(ctx)
}

func loadFailures(path string) (model.FailureRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening failure record: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return model.LoadFailureRecord(f)
}

func newProject(root, module string) (build.Project, error) {
	if module == "" {
		module = root
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return build.Project{}, fmt.Errorf("project root %s: %w", root, err)
	}
	moduleAbs, err := filepath.Abs(module)
	if err != nil {
		return build.Project{}, fmt.Errorf("project module %s: %w", module, err)
	}
	return build.Project{Root: rootAbs, Module: moduleAbs}, nil
}

func maven(cfg model.Maven) build.Maven {
	m := build.NewMaven(cfg.Binary)
	m.Env = model.Environ(cfg.Env)
	m.Timeout = cfg.Timeout
	return m
}

func engine(cfg model.Engine) repair.ExecEngine {
	e := repair.NewExecEngine(cfg.Path, cfg.Args...)
	e.Env = model.Environ(cfg.Env)
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
