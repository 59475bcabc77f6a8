package build_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/Repairer/internal/build"
	"github.com/stretchr/testify/require"
)

func TestMavenArgs(t *testing.T) {
	t.Parallel()
	m := build.NewMaven("mvn")
	args := m.Args(build.Request{
		POM:        "/p/pom.xml",
		Goals:      []string{"dependency:build-classpath"},
		Properties: map[string]string{"mdep.outputFile": "classpath.info", "a": "b"},
	})
	require.Equal(t, []string{
		"-B", "-f", "/p/pom.xml",
		"dependency:build-classpath",
		"-Da=b",
		"-Dmdep.outputFile=classpath.info",
	}, args)
}

// fakeMaven writes a shell script standing in for mvn which records its
// arguments next to the pom and exits with code.
func fakeMaven(t *testing.T, code string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	path := filepath.Join(t.TempDir(), "mvn")
	script := "#!/bin/sh\necho \"$@\" > args.txt\necho building 1>&2\nexit " + code + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestMavenExecute(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	pom := filepath.Join(dir, "pom.xml")

	t.Run("success", func(t *testing.T) {
		m := build.NewMaven(fakeMaven(t, "0"))
		res, err := m.Execute(t.Context(), build.Request{POM: pom, Goals: []string{"install"}})
		require.NoError(t, err)
		require.Equal(t, 0, res.ExitCode)
		args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
		require.NoError(t, err)
		require.Equal(t, "-B -f "+pom+" install\n", string(args))
	})

	t.Run("failure", func(t *testing.T) {
		m := build.NewMaven(fakeMaven(t, "1"))
		res, err := m.Execute(t.Context(), build.Request{POM: pom, Goals: []string{"install"}})
		require.NoError(t, err)
		require.Equal(t, 1, res.ExitCode)
	})

	t.Run("launch error", func(t *testing.T) {
		m := build.NewMaven(filepath.Join(dir, "no-such-mvn"))
		_, err := m.Execute(t.Context(), build.Request{POM: pom, Goals: []string{"install"}})
		require.Error(t, err)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
