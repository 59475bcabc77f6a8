package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
verbose: true
maven:
  binary: /opt/maven/bin/mvn
  env:
    MAVEN_OPTS: "-Xmx1g"
repair:
  solver_path: /usr/bin/z3
  max_time: 90s
  engine:
    path: java
    args:
      - -jar
      - /opt/nopol/nopol.jar
sweep:
  pattern: gzoltar
report:
  dir: /tmp/reports
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.True(t, cfg.Verbose)
	require.Equal(t, "/opt/maven/bin/mvn", cfg.Maven.Binary)
	require.Equal(t, "-Xmx1g", cfg.Maven.Env["MAVEN_OPTS"])
	require.Equal(t, "/usr/bin/z3", cfg.Repair.SolverPath)
	require.Equal(t, 90*time.Second, cfg.Repair.MaxTime)
	require.Equal(t, []string{"-jar", "/opt/nopol/nopol.jar"}, cfg.Repair.Engine.Args)
	require.Equal(t, "/tmp/reports", cfg.Report.Dir)
	// not set in the file, default kept
	require.Equal(t, model.DefaultSweepTimeout, cfg.Sweep.Timeout)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := model.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(t.Context()), cfg)
	require.Equal(t, model.DefaultMaxTime, cfg.Repair.MaxTime)
	require.Equal(t, model.DefaultSweepPattern, cfg.Sweep.Pattern)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		yml      string
		contains string
	}{
		{"unknown field", "repair:\n  solvr: z3\n", "field solvr not found"},
		{"version", "version: 2\n", "config version 2 is not supported"},
		{"empty engine", "repair:\n  engine:\n    path: \"\"\n", "repair.engine.path is empty"},
		{"negative budget", "repair:\n  max_time: -1s\n", "repair.max_time must be positive"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tt.yml))
			require.Error(t, err)
			require.ErrorContains(t, err, tt.contains)
		})
	}
}

func TestLoadFailureRecord(t *testing.T) {
	t.Parallel()
	t.Run("json", func(t *testing.T) {
		rec, err := model.LoadFailureRecord(strings.NewReader(`{"moduleA": {"com.x.FooTest:testBar": "AssertionError"}}`))
		require.NoError(t, err)
		require.Equal(t, model.FailureRecord{
			"moduleA": {"com.x.FooTest:testBar": "AssertionError"},
		}, rec)
	})
	t.Run("yaml", func(t *testing.T) {
		rec, err := model.LoadFailureRecord(strings.NewReader("moduleA:\n  \"com.x.FooTest:testBar\": AssertionError\n"))
		require.NoError(t, err)
		require.Equal(t, "AssertionError", rec["moduleA"]["com.x.FooTest:testBar"])
	})
	t.Run("empty", func(t *testing.T) {
		rec, err := model.LoadFailureRecord(strings.NewReader(""))
		require.NoError(t, err)
		require.Empty(t, rec)
	})
}

func TestTestIdentifierSet(t *testing.T) {
	t.Parallel()
	s := model.NewTestIdentifierSet("b.BTest", "a.ATest", "b.BTest")
	require.Equal(t, 2, s.Len())
	require.True(t, s.Has("a.ATest"))
	require.False(t, s.Has("c.CTest"))
	require.Equal(t, []string{"a.ATest", "b.BTest"}, s.Sorted())

	var zero model.TestIdentifierSet
	require.Zero(t, zero.Len())
	zero.Add("x")
	require.True(t, zero.Has("x"))
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	var d model.Diagnostics
	d.Add(t.Context(), "first")
	d.Add(t.Context(), "second", "key", "value")
	errs := d.Errors()
	require.Equal(t, []string{"first", "second"}, errs)
	errs[0] = "changed"
	require.Equal(t, "first", d.Errors()[0])
	require.Equal(t, 2, d.Len())
}

func TestEnviron(t *testing.T) {
	require.Nil(t, model.Environ(nil))
	t.Setenv("REPAIRER_TEST_HOME", "/home/repairer")
	env := model.Environ(map[string]string{"HOME": "$REPAIRER_TEST_HOME", "LC_ALL": "C"})
	require.Contains(t, env, "HOME=/home/repairer")
	require.Contains(t, env, "LC_ALL=C")
}
