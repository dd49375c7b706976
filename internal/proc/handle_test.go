package proc_test

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/gwauto/gwsupervisor/internal/proc"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type lines struct {
	mx     sync.Mutex
	stdout []string
	stderr []string
	exit   chan int
}

func newLines() *lines {
	return &lines{exit: make(chan int, 1)}
}

func (l *lines) handlers() proc.Handlers {
	return proc.Handlers{
		Stdout: func(_ context.Context, line string) {
			l.mx.Lock()
			defer l.mx.Unlock()
			l.stdout = append(l.stdout, line)
		},
		Stderr: func(_ context.Context, line string) {
			l.mx.Lock()
			defer l.mx.Unlock()
			l.stderr = append(l.stderr, line)
		},
		Exit: func(_ context.Context, code int) {
			l.exit <- code
		},
	}
}

func lookSh(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return sh
}

func TestSpawn(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	cmd := proc.Command{
		Path: sh,
		Args: []string{"-c", "echo out1; echo err1 1>&2; echo out2; exit 3"},
	}
	got := newLines()
	h, err := proc.Spawn(t.Context(), cmd, got.handlers())
	require.NoError(t, err)
	require.NotZero(t, h.Pid())

	select {
	case code := <-got.exit:
		require.Equal(t, 3, code)
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	require.False(t, h.IsAlive())
	require.Equal(t, 3, h.ExitCode())
	got.mx.Lock()
	defer got.mx.Unlock()
	require.Equal(t, []string{"out1", "out2"}, got.stdout)
	require.Equal(t, []string{"err1"}, got.stderr)
}

func TestSpawn_BackgroundChild(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	// the sleeper inherits stdout and keeps it open after sh exits
	cmd := proc.Command{
		Path: sh,
		Args: []string{"-c", "sleep 3 & echo hi; exit 0"},
	}
	got := newLines()
	start := time.Now()
	h, err := proc.Spawn(t.Context(), cmd, got.handlers())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	code, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Zero(t, code)
	require.False(t, h.IsAlive())
	require.Less(t, time.Since(start), 2*time.Second)

	select {
	case code := <-got.exit:
		require.Zero(t, code)
	case <-time.After(5 * time.Second):
		t.Fatal("exit was not delivered")
	}
	require.Less(t, time.Since(start), 3*time.Second)
	got.mx.Lock()
	defer got.mx.Unlock()
	require.Equal(t, []string{"hi"}, got.stdout)
}

func TestSpawn_ExecError(t *testing.T) {
	t.Parallel()
	_, err := proc.Spawn(t.Context(), proc.Command{Path: "does not exist"}, proc.Handlers{})
	require.Error(t, err)
	var execErr *exec.Error
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "does not exist", execErr.Name)
}

func TestKill(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	cmd := proc.Command{
		Path: sh,
		Args: []string{"-c", "echo ready; sleep 30; echo never"},
	}
	got := newLines()
	h, err := proc.Spawn(t.Context(), cmd, got.handlers())
	require.NoError(t, err)
	require.True(t, h.IsAlive())

	require.NoError(t, h.Kill())

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	code, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, -1, code)
	require.False(t, h.IsAlive())
	require.NoError(t, h.Kill())
	<-got.exit
}

func TestWait_Context(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	h, err := proc.Spawn(t.Context(), proc.Command{Path: sh, Args: []string{"-c", "exec sleep 30"}}, proc.Handlers{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Kill()
		<-h.Done()
	})

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, h.IsAlive())
}

func TestRun(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	var got []string
	fn := func(_ context.Context, line string) {
		got = append(got, line)
	}
	err := proc.Run(t.Context(), proc.Command{Path: sh, Args: []string{"-c", "echo a; echo b 1>&2"}}, fn)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, got)

	got = nil
	err = proc.Run(t.Context(), proc.Command{Path: sh, Args: []string{"-c", "echo failing; exit 1"}}, fn)
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, []string{"failing"}, got)
}
