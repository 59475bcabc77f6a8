package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"
)

var (
	ErrNotStarted = errors.New("command not started")
	ErrInProgress = errors.New("command in progress")
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the command itself was killed.
const waitDelay = 5 * time.Second

type StderrFunc func(ctx context.Context, line string)

type Runner struct {
	mx     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	result Result
	waits  []chan Result
}

func NewRunner() *Runner {
	return &Runner{
		result: Result{Err: ErrNotStarted},
	}
}

type Command struct {
	Path    string
	Args    []string
	Env     []string // nil inherits the current environment
	Dir     string
	Timeout time.Duration
}

type Result struct {
	Path    string
	Args    []string
	Dir     string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Err     error
}

// ExitCode returns the exit code of a finished command or -1.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Start runs the underlying process, only a single instance per Runner is active.
// Returns ErrInProgress or an exec error, otherwise nil. Does NOT wait on
// command to finish, use WaitChan method instead.
// The process runs in its own process group where supported, so cancelling
// ctx or hitting the timeout kills its children as well.
func (r *Runner) Start(ctx context.Context, proto Command, stderrFunc StderrFunc) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd != nil {
		return ErrInProgress
	}

	r.result = Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
		Dir:  proto.Dir,
	}

	var cancel context.CancelFunc
	if proto.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...)
	if proto.Env != nil {
		cmd.Env = append([]string(nil), proto.Env...)
	}
	cmd.Dir = proto.Dir
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var buf bytes.Buffer
	r.result.Stdout = &buf
	cmd.Stdout = &buf

	var stderr *lineWriter
	if stderrFunc != nil {
		stderr = &lineWriter{ctx: ctx, fn: stderrFunc}
		cmd.Stderr = stderr
	}

	r.result.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		cancel()
		r.result.Stopped = time.Now().UTC()
		r.result.Err = err
		return err
	}

	r.cmd = cmd
	r.cancel = cancel
	go r.wait(cmd, cancel, stderr)
	return nil
}

func (r *Runner) wait(cmd *exec.Cmd, cancel context.CancelFunc, stderr *lineWriter) {
	err := cmd.Wait()
	cancel()
	if stderr != nil {
		stderr.flush()
	}
	stopped := time.Now().UTC()

	r.mx.Lock()
	defer r.mx.Unlock()
	r.result.Stopped = stopped
	r.result.State = cmd.ProcessState
	r.result.Err = err
	r.cmd = nil
	r.cancel = nil
	for _, ch := range r.waits {
		ch <- r.result
		close(ch)
	}
	r.waits = nil
}

// WaitChan returns the channel obtaining the result of a running
// program. The channel is closed once program ends. When nothing is
// running, the last result is delivered immediately.
func (r *Runner) WaitChan() <-chan Result {
	ch := make(chan Result, 1)
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd == nil {
		ch <- r.result
		close(ch)
		return ch
	}
	r.waits = append(r.waits, ch)
	return ch
}

// LastResult returns a last command result
// or result with ErrNotStarted/ErrInProgress
// if no command has finished yet
func (r *Runner) LastResult() Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cmd != nil {
		res := r.result
		res.Err = ErrInProgress
		return res
	}
	return r.result
}

// Close kills the running command, if any.
func (r *Runner) Close() {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Run starts proto and blocks until it ends. The returned error is only
// set if the command could not be started; exit failures are in Result.Err.
func Run(ctx context.Context, proto Command, stderrFunc StderrFunc) (Result, error) {
	r := NewRunner()
	if err := r.Start(ctx, proto, stderrFunc); err != nil {
		return r.LastResult(), err
	}
	return <-r.WaitChan(), nil
}

// lineWriter calls fn for every complete line written to it.
type lineWriter struct {
	ctx context.Context
	fn  StderrFunc
	mx  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mx.Lock()
	defer w.mx.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.fn(w.ctx, string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mx.Lock()
	defer w.mx.Unlock()
	if len(w.buf) > 0 {
		w.fn(w.ctx, string(w.buf))
		w.buf = nil
	}
}
