package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single output line. Longer lines end the stream scan.
const maxLineSize = 1024 * 1024

// exitDrain bounds how long output is still read after the process exited.
// A background child inheriting the streams keeps them open past that.
const exitDrain = time.Second

// Command describes a process to spawn.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// LineFunc receives a single output line without the trailing newline.
type LineFunc func(ctx context.Context, line string)

// ExitFunc receives the exit code once the process has terminated.
// The code is -1 when the process was killed by a signal.
type ExitFunc func(ctx context.Context, code int)

// Handlers are the callbacks attached to a spawned process. All of them are
// optional and are called from goroutines owned by the Handle.
type Handlers struct {
	Stdout LineFunc
	Stderr LineFunc
	Exit   ExitFunc
}

// Handle owns a single running OS process.
type Handle struct {
	cmd      *exec.Cmd
	pid      int
	done     chan struct{}
	exitCode atomic.Int32
}

// Spawn starts the process and immediately begins reading both output streams
// so no output is lost. It does NOT wait for the process to finish.
//
// The process is not bound to ctx: it outlives the call. ctx is passed to the
// handlers and used for logging only.
func Spawn(ctx context.Context, proto Command, h Handlers) (*Handle, error) {
	cmd := exec.Command(proto.Path, proto.Args...) //nolint:gosec // launcher path comes from configuration
	cmd.Env = proto.Env
	cmd.Dir = proto.Dir
	setProcessGroup(cmd)

	// own pipes instead of StdoutPipe: cmd.Wait must be free to reap the
	// process while the streams are still open
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdout, stdoutW)
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	// the child holds its own copies of the write ends
	closeAll(stdoutW, stderrW)
	if err != nil {
		closeAll(stdout, stderr)
		return nil, fmt.Errorf("starting %s: %w", proto.Path, err)
	}

	handle := &Handle{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	handle.exitCode.Store(-1)
	slog.InfoContext(ctx, "process started", "path", proto.Path, "pid", handle.pid)

	go handle.wait(ctx, stdout, stderr, h)
	return handle, nil
}

// wait reaps the process as soon as it exits, independently of the output
// streams. Exit is delivered once the streams are drained, or after exitDrain
// when something else still holds them open.
func (p *Handle) wait(ctx context.Context, stdout, stderr *os.File, h Handlers) {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		var g errgroup.Group
		g.Go(func() error { return scanLines(ctx, stdout, h.Stdout) })
		g.Go(func() error { return scanLines(ctx, stderr, h.Stderr) })
		if err := g.Wait(); err != nil {
			slog.ErrorContext(ctx, "reading process output", "pid", p.pid, "error", err)
		}
	}()

	err := p.cmd.Wait()
	code := exitCode(p.cmd, err)
	p.exitCode.Store(int32(code))
	close(p.done)
	slog.InfoContext(ctx, "process exited", "pid", p.pid, "code", code)

	timer := time.NewTimer(exitDrain)
	select {
	case <-drained:
	case <-timer.C:
		slog.WarnContext(ctx, "process output still open after exit: closing", "pid", p.pid)
		// unblocks the readers where the pipe is pollable
		closeAll(stdout, stderr)
		timer.Reset(exitDrain)
		select {
		case <-drained:
		case <-timer.C:
			slog.ErrorContext(ctx, "process output readers did not stop", "pid", p.pid)
		}
	}
	timer.Stop()
	closeAll(stdout, stderr)

	if h.Exit != nil {
		h.Exit(ctx, code)
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func scanLines(ctx context.Context, r io.Reader, fn LineFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if fn != nil {
			fn(ctx, scanner.Text())
		}
	}
	err := scanner.Err()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		// keep draining so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Pid returns the OS process id.
func (p *Handle) Pid() int {
	return p.pid
}

// Done returns a channel closed once the process has exited. Output may still
// be delivered for up to exitDrain afterwards.
func (p *Handle) Done() <-chan struct{} {
	return p.done
}

// IsAlive reports whether the process is still running.
func (p *Handle) IsAlive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code, or -1 while the process is running.
func (p *Handle) ExitCode() int {
	return int(p.exitCode.Load())
}

// Wait blocks until the process exits or ctx is done.
func (p *Handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.ExitCode(), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Kill is a best-effort, non-blocking request to end the process together
// with everything it spawned. Use Done to learn when it actually exited.
func (p *Handle) Kill() error {
	if !p.IsAlive() {
		return nil
	}
	return killProcessGroup(p.cmd)
}
