package service

import (
	"context"
	"fmt"
	"log/slog"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/gwauto/gwsupervisor/internal/gateway"
	"github.com/gwauto/gwsupervisor/internal/model"
)

// Gateway is the lifecycle the service drives. *gateway.Supervisor implements it.
type Gateway interface {
	Start(ctx context.Context, waitForExit bool) gateway.Result
	Stop(ctx context.Context)
	Restart(ctx context.Context) gateway.Result
}

type Service struct {
	gw      Gateway
	cron    string
	restart chan struct{}
}

// New creates a service for gw. A non nil schedule adds a cron job
// requesting periodic restarts.
func New(ctx context.Context, gw Gateway, schedule *model.Restart) (*Service, error) {
	s := &Service{
		gw:      gw,
		restart: make(chan struct{}, 1),
	}
	if schedule != nil {
		interval, err := model.ParseCron(schedule.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing service.restart.cron: %w", err)
		}
		slog.DebugContext(ctx, "successfully parsed", "cron", schedule.Cron, "interval", interval.String())
		s.cron = schedule.Cron
	}
	return s, nil
}

// RequestRestart asks the running loop to restart the gateway. Requests
// arriving while one is already pending are merged.
func (s *Service) RequestRestart() {
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

// Do starts the gateway and keeps it up until ctx is cancelled.
// It returns the first failure reported by the gateway, or nil once the
// gateway has been stopped due to cancellation.
func (s *Service) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a service")

	result := s.gw.Start(ctx, false)
	if err := result.Err(); err != nil {
		s.gw.Stop(context.WithoutCancel(ctx))
		return fmt.Errorf("starting gateway: %w", err)
	}
	if result.Message != "" {
		slog.WarnContext(ctx, "gateway started without confirmation", "result", result.String())
	}

	if s.cron != "" {
		scheduler, err := newScheduler(s.cron, s.RequestRestart)
		if err != nil {
			s.gw.Stop(ctx)
			return err
		}
		scheduler.Start()
		defer func() {
			err := scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			// ctx is already done, stop still needs to run the sweep
			s.gw.Stop(context.WithoutCancel(ctx))
			slog.InfoContext(ctx, "gateway stopped")
			return nil
		case <-s.restart:
			slog.InfoContext(ctx, "restarting gateway")
			result := s.gw.Restart(ctx)
			if err := result.Err(); err != nil {
				if ctx.Err() != nil {
					continue
				}
				s.gw.Stop(context.WithoutCancel(ctx))
				return fmt.Errorf("restarting gateway: %w", err)
			}
			slog.InfoContext(ctx, "gateway restarted", "result", result.String())
		}
	}
}

func newScheduler(expr string, restartFunc func()) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(restartFunc),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}
