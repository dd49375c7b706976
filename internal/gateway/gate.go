package gateway

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrGateTimeout is returned by Gate.Wait when nothing signalled in time.
var ErrGateTimeout = errors.New("gate wait timed out")

// Gate is a re-armable one-shot signal. A Signal sent while nobody waits is
// kept until the next Wait or Arm, so a terminal line printed before the
// caller starts waiting is not lost.
type Gate struct {
	mx sync.Mutex
	ch chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Arm clears any pending signal.
func (g *Gate) Arm() {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.ch = make(chan struct{}, 1)
}

// Signal wakes one waiter. Repeated signals collapse into one.
func (g *Gate) Signal() {
	g.mx.Lock()
	ch := g.ch
	g.mx.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Wait blocks until signalled, d elapses or ctx is done. It returns nil when
// signalled, ErrGateTimeout after d, or the context error.
func (g *Gate) Wait(ctx context.Context, d time.Duration) error {
	g.mx.Lock()
	ch := g.ch
	g.mx.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return ErrGateTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
