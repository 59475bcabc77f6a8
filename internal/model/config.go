package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMavenBinary  = "mvn"
	DefaultSweepPattern = "gzoltar"
	DefaultSweepTimeout = 10 * time.Second
	DefaultMaxTime      = 1 * time.Minute
)

type Config struct {
	Version int     `yaml:"version"` // fixed 0 for now
	Verbose bool    `yaml:"verbose"`
	Maven   Maven   `yaml:"maven"`
	Repair  Repair  `yaml:"repair"`
	Sweep   Sweep   `yaml:"sweep"`
	Report  Output  `yaml:"report"`
	Metrics Metrics `yaml:"metrics"`
}

// Maven configures the build tool used to resolve artifacts.
type Maven struct {
	Binary  string            `yaml:"binary"`
	Env     map[string]string `yaml:"env,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"` // 0 => no timeout
}

// Repair configures the external repair engine.
type Repair struct {
	SolverPath string        `yaml:"solver_path"`
	MaxTime    time.Duration `yaml:"max_time,omitempty"`
	Engine     Engine        `yaml:"engine"`
}

type Engine struct {
	Path string            `yaml:"path"`
	Args []string          `yaml:"args,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// Sweep configures the orphan process sweep executed after a timeout.
type Sweep struct {
	Pattern string        `yaml:"pattern"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Output says where the repair report goes: empty Dir means stdout.
type Output struct {
	Dir string `yaml:"dir,omitempty"`
}

type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

func DefaultConfig(_ context.Context) Config {
	return Config{
		Version: 0,
		Maven: Maven{
			Binary: DefaultMavenBinary,
		},
		Repair: Repair{
			MaxTime: DefaultMaxTime,
			Engine: Engine{
				Path: "java",
				Args: []string{"-jar", "nopol.jar"},
			},
		},
		Sweep: Sweep{
			Pattern: DefaultSweepPattern,
			Timeout: DefaultSweepTimeout,
		},
	}
}

// LoadConfig decodes YAML from r on top of DefaultConfig. Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig(context.Background())
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Version != 0 {
		errs = append(errs, fmt.Errorf("config version %d is not supported, expected 0", c.Version))
	}
	if c.Maven.Binary == "" {
		errs = append(errs, errors.New("maven.binary is empty"))
	}
	if c.Repair.Engine.Path == "" {
		errs = append(errs, errors.New("repair.engine.path is empty"))
	}
	if c.Repair.MaxTime <= 0 {
		errs = append(errs, fmt.Errorf("repair.max_time must be positive, got %s", c.Repair.MaxTime))
	}
	if c.Sweep.Pattern == "" {
		errs = append(errs, errors.New("sweep.pattern is empty"))
	}
	return errors.Join(errs...)
}

// LoadFailureRecord decodes a failure record. JSON is accepted as it is a subset of YAML.
func LoadFailureRecord(r io.Reader) (FailureRecord, error) {
	var rec FailureRecord
	err := yaml.NewDecoder(r).Decode(&rec)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding failure record: %w", err)
	}
	return rec, nil
}

// Environ returns the process environment extended by extra. Values starting
// with $ are expanded. A nil result means "inherit" for os/exec.
func Environ(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		v := extra[k]
		if len(v) > 0 && v[0] == '$' {
			v = os.ExpandEnv(v)
		}
		env = append(env, k+"="+v)
	}
	return env
}
