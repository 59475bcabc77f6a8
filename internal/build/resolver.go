package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CZERTAINLY/Repairer/internal/log"
	"github.com/CZERTAINLY/Repairer/internal/metrics"
	"github.com/CZERTAINLY/Repairer/internal/model"
)

const (
	DescriptorFile = "classpath.info"
	SourceDir      = "src/main/java"
	ClassesDir     = "target/classes"
	TestClassesDir = "target/test-classes"
)

// Project locates the multi module project and its failing module.
type Project struct {
	Root   string
	Module string
}

// Step is one build tool invocation. Fatal says whether a failed
// invocation stops the resolution.
type Step struct {
	Name    string
	Fatal   bool
	Request func(Project) Request
}

// DefaultSteps installs the whole project first, so the failing module
// finds its sibling modules, then writes the classpath descriptor of the
// failing module. Only the latter is fatal.
var DefaultSteps = []Step{
	{
		Name:  "install",
		Fatal: false,
		Request: func(p Project) Request {
			return Request{
				POM:        filepath.Join(p.Root, "pom.xml"),
				Goals:      []string{"install"},
				Properties: map[string]string{"maven.test.skip": "true"},
			}
		},
	},
	{
		Name:  "classpath",
		Fatal: true,
		Request: func(p Project) Request {
			return Request{
				POM:        filepath.Join(p.Module, "pom.xml"),
				Goals:      []string{"dependency:build-classpath"},
				Properties: map[string]string{"mdep.outputFile": DescriptorFile},
			}
		},
	},
}

type Resolver struct {
	tool    Tool
	steps   []Step
	metrics *metrics.Metrics
}

// NewResolver returns a Resolver running steps, or DefaultSteps if none are given.
func NewResolver(tool Tool, steps ...Step) Resolver {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	return Resolver{tool: tool, steps: steps}
}

func (r Resolver) WithMetrics(m *metrics.Metrics) Resolver {
	r.metrics = m
	return r
}

// Resolve runs the build steps in order and derives the classpath and source
// dir of the failing module. Failures of non fatal steps are recorded to
// diag and ignored; the first fatal failure is recorded and returned.
func (r Resolver) Resolve(ctx context.Context, p Project, diag *model.Diagnostics) (model.ArtifactResolution, error) {
	for _, step := range r.steps {
		if err := r.run(ctx, step, p, diag); err != nil {
			return model.ArtifactResolution{}, err
		}
	}

	classPath, err := ClassPath(p.Module)
	if err != nil {
		diag.Add(ctx, err.Error())
		return model.ArtifactResolution{}, err
	}

	sourceDir, err := checkSourceDir(filepath.Join(p.Module, SourceDir))
	if err != nil {
		diag.Add(ctx, err.Error())
		return model.ArtifactResolution{}, err
	}

	return model.ArtifactResolution{
		SourceDir: sourceDir,
		ClassPath: classPath,
	}, nil
}

func (r Resolver) run(ctx context.Context, step Step, p Project, diag *model.Diagnostics) error {
	ctx = withStep(ctx, step)
	slog.DebugContext(ctx, "running build step")
	res, err := r.tool.Execute(ctx, step.Request(p))
	r.metrics.IncBuild(step.Name, buildResult(res, err))
	if err != nil {
		if !step.Fatal {
			diag.Add(ctx, fmt.Sprintf("build step %s: %s", step.Name, err))
			return nil
		}
		err = fmt.Errorf("%w: build step %s: %w", model.ErrBuildStep, step.Name, err)
		diag.Add(ctx, err.Error())
		return err
	}
	if res.ExitCode == 0 {
		return nil
	}
	if !step.Fatal {
		slog.DebugContext(ctx, "build step failed: ignoring", "exit_code", res.ExitCode)
		return nil
	}
	err = fmt.Errorf("%w: build step %s exited with %d", model.ErrBuildStep, step.Name, res.ExitCode)
	diag.Add(ctx, err.Error())
	return err
}

func buildResult(res Result, err error) string {
	switch {
	case err != nil:
		return "launch_error"
	case res.ExitCode != 0:
		return "failed"
	default:
		return "ok"
	}
}

func withStep(ctx context.Context, step Step) context.Context {
	return log.ContextAttrs(ctx, slog.String("build_step", step.Name), slog.Bool("fatal", step.Fatal))
}

// ClassPath joins the compiled classes, the compiled test classes and the
// first line of the classpath descriptor of module.
func ClassPath(module string) (string, error) {
	path := filepath.Join(module, DescriptorFile)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrDescriptor, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var deps string
	if sc.Scan() {
		deps = strings.TrimSpace(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrDescriptor, path, err)
	}

	entries := []string{
		filepath.Join(module, ClassesDir),
		filepath.Join(module, TestClassesDir),
	}
	if deps != "" {
		entries = append(entries, deps)
	}
	return strings.Join(entries, string(os.PathListSeparator)), nil
}

func checkSourceDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrSourceDir, dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrSourceDir, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", model.ErrSourceDir, abs)
	}
	d, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrSourceDir, abs, err)
	}
	defer func() {
		_ = d.Close()
	}()
	if _, err := d.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s: %w", model.ErrSourceDir, abs, err)
	}
	return abs, nil
}
