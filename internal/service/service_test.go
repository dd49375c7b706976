package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gwauto/gwsupervisor/internal/gateway"
	"github.com/gwauto/gwsupervisor/internal/model"
	"github.com/gwauto/gwsupervisor/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGateway struct {
	mx       sync.Mutex
	start    gateway.Result
	restart  gateway.Result
	starts   int
	stops    int
	restarts int
}

func (g *fakeGateway) Start(context.Context, bool) gateway.Result {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.starts++
	return g.start
}

func (g *fakeGateway) Stop(context.Context) {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.stops++
}

func (g *fakeGateway) Restart(context.Context) gateway.Result {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.restarts++
	return g.restart
}

func (g *fakeGateway) counts() (starts, stops, restarts int) {
	g.mx.Lock()
	defer g.mx.Unlock()
	return g.starts, g.stops, g.restarts
}

func TestDo_StopOnCancel(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{start: gateway.Success()}
	svc, err := service.New(t.Context(), gw, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	var doErr error
	wg.Go(func() {
		doErr = svc.Do(ctx)
	})

	require.Eventually(t, func() bool {
		starts, _, _ := gw.counts()
		return starts == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()

	require.NoError(t, doErr)
	starts, stops, restarts := gw.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)
	require.Zero(t, restarts)
}

func TestDo_StartFailure(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{start: gateway.Failure(gateway.KindLoginFailed, "")}
	svc, err := service.New(t.Context(), gw, nil)
	require.NoError(t, err)

	err = svc.Do(t.Context())
	require.Error(t, err)
	require.ErrorIs(t, err, gateway.ErrLoginFailed)
	_, stops, _ := gw.counts()
	require.Equal(t, 1, stops)
}

func TestDo_UnconfirmedStartKeepsRunning(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{start: gateway.Result{Message: "gateway initialization timed out after 1m0s"}}
	svc, err := service.New(t.Context(), gw, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, svc.Do(ctx))
}

func TestDo_RequestRestart(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{start: gateway.Success(), restart: gateway.Success()}
	svc, err := service.New(t.Context(), gw, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	wg.Go(func() {
		err := svc.Do(ctx)
		require.NoError(t, err)
	})

	svc.RequestRestart()
	require.Eventually(t, func() bool {
		_, _, restarts := gw.counts()
		return restarts == 1
	}, time.Second, 5*time.Millisecond)

	svc.RequestRestart()
	require.Eventually(t, func() bool {
		_, _, restarts := gw.counts()
		return restarts == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestDo_RestartFailure(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{
		start:   gateway.Success(),
		restart: gateway.Failure(gateway.KindExistingSessionDetected, ""),
	}
	svc, err := service.New(t.Context(), gw, nil)
	require.NoError(t, err)

	svc.RequestRestart()
	err = svc.Do(t.Context())
	require.ErrorIs(t, err, gateway.ErrExistingSessionDetected)
	_, stops, restarts := gw.counts()
	require.Equal(t, 1, restarts)
	require.Equal(t, 1, stops)
}

func TestDo_CronRestart(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{start: gateway.Success(), restart: gateway.Success()}
	svc, err := service.New(t.Context(), gw, &model.Restart{Cron: "@every 1s"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	wg.Go(func() {
		err := svc.Do(ctx)
		require.NoError(t, err)
	})

	require.Eventually(t, func() bool {
		_, _, restarts := gw.counts()
		return restarts >= 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestNew_InvalidCron(t *testing.T) {
	t.Parallel()
	_, err := service.New(t.Context(), &fakeGateway{}, &model.Restart{Cron: "* * 32 * *"})
	require.Error(t, err)
	require.ErrorContains(t, err, "service.restart.cron")
}
