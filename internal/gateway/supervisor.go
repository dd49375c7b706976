package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwauto/gwsupervisor/internal/log"
	"github.com/gwauto/gwsupervisor/internal/proc"
)

// Supervisor owns the single gateway process of one session.
//
// lifecycle serializes Start, Stop and Restart. mx guards the fields that the
// stream reader goroutines touch as well: they run outside lifecycle.
// generation identifies the current attempt. Events in the output of an
// older process neither latch nor signal the gate.
type Supervisor struct {
	config   Config
	observer Observer
	platform Platform
	table    proc.Table
	gate     *Gate

	lifecycle sync.Mutex

	mx         sync.Mutex
	handle     *proc.Handle
	generation uint64
	last       Result
	pending2FA bool
}

// NewSupervisor creates a Supervisor for the host platform. A nil observer
// discards the gateway stream.
func NewSupervisor(cfg Config, observer Observer) *Supervisor {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Supervisor{
		config:   cfg.withDefaults(),
		observer: observer,
		platform: HostPlatform(),
		table:    proc.NewSystemTable(),
		gate:     NewGate(),
	}
}

// WithPlatform replaces the host platform.
// This method exists for a unit testing only.
func (s *Supervisor) WithPlatform(p Platform) *Supervisor {
	s.platform = p
	return s
}

// WithProcessTable replaces the OS process table used by the Stop sweep.
// This method exists for a unit testing only.
func (s *Supervisor) WithProcessTable(t proc.Table) *Supervisor {
	s.table = t
	return s
}

// Start launches the gateway and waits until it is ready, failed, or the
// timeouts ran out. Errors detected in the gateway output are latched: once
// LastResult holds one, Start returns it without launching again.
//
// With waitForExit set, Start blocks until the process exits and returns
// success without applying the initialization protocol.
func (s *Supervisor) Start(ctx context.Context, waitForExit bool) Result {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start(ctx, waitForExit)
}

func (s *Supervisor) start(ctx context.Context, waitForExit bool) Result {
	if last := s.LastResult(); !last.OK() {
		slog.WarnContext(ctx, "gateway start refused: error latched", "result", last.String())
		return last
	}
	if s.IsRunning() {
		slog.DebugContext(ctx, "gateway already running", "pid", s.PID())
		return Success()
	}

	ctx = log.ContextAttrs(ctx, slog.String("attempt", uuid.NewString()))

	s.mx.Lock()
	s.handle = nil
	s.pending2FA = false
	s.generation++
	gen := s.generation
	s.gate.Arm()
	s.mx.Unlock()

	// exec resolves a relative path against the child's Dir
	launcher, err := filepath.Abs(filepath.Join(s.config.ScriptsDir, s.platform.Launcher))
	if err != nil {
		return Failure(KindProcessStartFailed, err.Error())
	}
	if s.platform.MakeExecutable {
		s.makeExecutable(ctx, launcher)
	}

	slog.InfoContext(ctx, "starting gateway", "launcher", launcher, "params", s.config.Params)
	handle, err := proc.Spawn(ctx, proc.Command{
		Path: launcher,
		Args: s.config.Params.Args(),
		Dir:  filepath.Dir(launcher),
	}, proc.Handlers{
		Stdout: func(ctx context.Context, line string) { s.onOutput(ctx, gen, line) },
		Stderr: s.onError,
		Exit:   s.onExit,
	})
	if err != nil {
		slog.ErrorContext(ctx, "gateway process start failed", "error", err)
		return Failure(KindProcessStartFailed, err.Error())
	}

	s.mx.Lock()
	s.handle = handle
	s.mx.Unlock()

	if waitForExit {
		code, err := handle.Wait(ctx)
		if err != nil {
			slog.WarnContext(ctx, "stopped waiting for gateway exit", "error", err)
			return Success()
		}
		slog.InfoContext(ctx, "gateway run finished", "code", code)
		return Success()
	}

	return s.awaitInitialization(ctx)
}

func (s *Supervisor) makeExecutable(ctx context.Context, launcher string) {
	forward := func(ctx context.Context, line string) {
		slog.InfoContext(ctx, "chmod", "line", line)
	}
	err := proc.Run(ctx, proc.Command{Path: "chmod", Args: []string{"+x", launcher}}, forward)
	if err != nil {
		slog.WarnContext(ctx, "making launcher executable failed", "launcher", launcher, "error", err)
	}
}

// awaitInitialization layers two waits on the gate: the ordinary startup
// window, then, only if a second factor dialog opened meanwhile, the time
// granted for the human confirmation. A cancelled ctx ends the wait without
// latching anything.
func (s *Supervisor) awaitInitialization(ctx context.Context) Result {
	err := s.gate.Wait(ctx, s.config.InitTimeout)
	if errors.Is(err, ErrGateTimeout) && s.AwaitingSecondFactor() {
		slog.InfoContext(ctx, "waiting for second factor confirmation", "timeout", s.config.TwoFactorTimeout)
		err = s.gate.Wait(ctx, s.config.TwoFactorTimeout)
		if errors.Is(err, ErrGateTimeout) {
			s.latch(Failure(KindTwoFactorConfirmationTimeout,
				fmt.Sprintf("no confirmation within %s", s.config.TwoFactorTimeout)))
		}
	}

	s.mx.Lock()
	s.pending2FA = false
	s.mx.Unlock()

	var outcome string
	switch {
	case err == nil:
		outcome = "gateway initialization finished"
	case errors.Is(err, ErrGateTimeout):
		outcome = fmt.Sprintf("gateway initialization timed out after %s", s.config.InitTimeout)
	default:
		outcome = fmt.Sprintf("gateway initialization wait cancelled: %v", err)
	}

	if last := s.LastResult(); !last.OK() {
		slog.ErrorContext(ctx, "gateway start failed", "kind", last.Kind.String(), "message", last.Message)
		return last
	}
	slog.InfoContext(ctx, outcome)
	if err != nil {
		return Result{Message: outcome}
	}
	return Success()
}

func (s *Supervisor) onOutput(ctx context.Context, gen uint64, line string) {
	s.observer.OutputReceived(ctx, line)
	event := Classify(line)

	s.mx.Lock()
	defer s.mx.Unlock()
	if gen != s.generation {
		if event != EventNone {
			slog.DebugContext(ctx, "ignoring event of a previous gateway process", "event", event.String())
		}
		return
	}

	switch {
	case event == EventTwoFactorWindowOpened:
		slog.InfoContext(ctx, "second factor authentication requested: confirm the login on your device")
		s.pending2FA = true
	case event.Terminal():
		if kind := event.Kind(); kind != KindNone {
			s.latchLocked(Failure(kind, line))
		}
		s.gate.Signal()
	}
}

func (s *Supervisor) onError(ctx context.Context, line string) {
	s.observer.ErrorReceived(ctx, line)
}

func (s *Supervisor) onExit(ctx context.Context, code int) {
	s.observer.Exited(ctx, code)
}

// latch records the first error; later errors do not overwrite it.
func (s *Supervisor) latch(r Result) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.latchLocked(r)
}

func (s *Supervisor) latchLocked(r Result) {
	if s.last.OK() {
		s.last = r
	}
}

// Stop asks the gateway to terminate and forgets the process. It does not
// wait for the process to actually exit.
func (s *Supervisor) Stop(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop(ctx)
}

func (s *Supervisor) stop(ctx context.Context) {
	if !s.IsRunning() {
		return
	}

	s.mx.Lock()
	handle := s.handle
	s.handle = nil
	s.generation++
	s.mx.Unlock()

	slog.InfoContext(ctx, "stopping gateway", "pid", handle.Pid())
	if s.platform.Terminate != nil {
		s.platform.Terminate(ctx, s.table, s.config)
	}
	if err := handle.Kill(); err != nil {
		slog.WarnContext(ctx, "killing gateway launcher failed", "pid", handle.Pid(), "error", err)
	}
}

// Restart stops the gateway, pauses for the OS teardown and starts it again.
// It is atomic with respect to concurrent Start and Stop calls.
func (s *Supervisor) Restart(ctx context.Context) Result {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	slog.InfoContext(ctx, "restarting gateway")
	s.stop(ctx)

	timer := time.NewTimer(s.config.RestartPause)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		slog.WarnContext(ctx, "restart pause interrupted", "error", ctx.Err())
	}

	return s.start(ctx, false)
}

// IsRunning reports whether the gateway process is alive. A process found
// dead is forgotten.
func (s *Supervisor) IsRunning() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.handle == nil {
		return false
	}
	if !s.handle.IsAlive() {
		s.handle = nil
		return false
	}
	return true
}

// LastResult returns the latched result, success unless an error was latched.
func (s *Supervisor) LastResult() Result {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.last
}

// AwaitingSecondFactor reports whether a second factor dialog is open and
// the current start attempt is still waiting for it.
func (s *Supervisor) AwaitingSecondFactor() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.pending2FA
}

// PID returns the gateway launcher process id, or 0 when not running.
func (s *Supervisor) PID() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.Pid()
}
