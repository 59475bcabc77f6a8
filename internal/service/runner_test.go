package service_test

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/Repairer/internal/service"
	"github.com/stretchr/testify/require"
)

func TestRunner(t *testing.T) {
	t.Parallel()
	yes, err := exec.LookPath("yes")
	if err != nil {
		t.Skipf("skipped, binary yes not available: %v", err)
	}

	runner := service.NewRunner()
	t.Cleanup(runner.Close)
	t.Run("not yet started", func(t *testing.T) {
		res := runner.LastResult()
		require.ErrorIs(t, res.Err, service.ErrNotStarted)
	})

	cmd := service.Command{
		Path:    yes,
		Args:    []string{"repairer"},
		Env:     []string{"LC_ALL=C"},
		Timeout: 100 * time.Millisecond,
	}
	ctx := t.Context()

	t.Run("start", func(t *testing.T) {
		err = runner.Start(ctx, cmd, nil)
		require.NoError(t, err)
	})
	t.Run("in progress", func(t *testing.T) {
		err = runner.Start(ctx, cmd, nil)
		require.ErrorIs(t, err, service.ErrInProgress)
		require.ErrorIs(t, runner.LastResult().Err, service.ErrInProgress)
	})
	t.Run("wait", func(t *testing.T) {
		res := <-runner.WaitChan()
		require.Equal(t, yes, res.Path)
		require.Equal(t, []string{"repairer"}, res.Args)
		require.NotZero(t, res.Started)
		require.NotZero(t, res.Stopped)
		require.GreaterOrEqual(t, res.Stopped.Sub(res.Started), 100*time.Millisecond)
		require.Error(t, res.Err)
		var exitErr *exec.ExitError
		require.ErrorAs(t, res.Err, &exitErr)
		require.Equal(t, -1, res.ExitCode())

		require.Greater(t, res.Stdout.Len(), 1024)
		require.True(t, strings.HasPrefix(
			string(res.Stdout.Bytes()[:256]),
			"repairer\nrepairer\n",
		))
	})
	t.Run("wait after end", func(t *testing.T) {
		res := <-runner.WaitChan()
		require.Equal(t, yes, res.Path)
		require.Error(t, res.Err)
	})
	t.Run("exec error", func(t *testing.T) {
		noCmd := service.Command{
			Path: "does not exist",
		}
		err := runner.Start(ctx, noCmd, nil)
		require.Error(t, err)
		var execErr *exec.Error
		require.ErrorAs(t, err, &execErr)
		require.Equal(t, noCmd.Path, execErr.Name)
		require.EqualError(t, execErr.Err, "executable file not found in $PATH")
	})
}

func TestStderr(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	cmd := service.Command{
		Path: sh,
		Args: []string{"-c", "echo stdout; printf 'stderr\\nstderr\\ntail' 1>&2"},
	}

	var mx sync.Mutex
	var stderr []string
	handle := func(_ context.Context, line string) {
		mx.Lock()
		defer mx.Unlock()
		stderr = append(stderr, line)
	}

	res, err := service.Run(t.Context(), cmd, handle)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, 0, res.ExitCode())
	require.Equal(t, "stdout\n", res.Stdout.String())
	mx.Lock()
	defer mx.Unlock()
	require.Equal(t, []string{"stderr", "stderr", "tail"}, stderr)
}

func TestRunExitCode(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	dir := t.TempDir()
	res, err := service.Run(t.Context(), service.Command{
		Path: sh,
		Args: []string{"-c", "pwd; exit 3"},
		Dir:  dir,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode())
	require.Equal(t, dir, res.Dir)
	require.Contains(t, res.Stdout.String(), dir)
}

func TestRunKillsProcessGroup(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	// the grandchild keeps stdout open; without a group kill Wait would
	// block until WaitDelay
	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	t.Cleanup(cancel)
	start := time.Now()
	res, err := service.Run(ctx, service.Command{
		Path: sh,
		Args: []string{"-c", "sleep 30 & sleep 30"},
	}, nil)
	require.NoError(t, err)
	require.Error(t, res.Err)
	require.Less(t, time.Since(start), 4*time.Second)
}
