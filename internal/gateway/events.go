package gateway

import (
	"context"
	"log/slog"
)

// Observer receives the raw gateway stream. Methods are called from the
// stream reader goroutines and must not block for long.
type Observer interface {
	OutputReceived(ctx context.Context, line string)
	ErrorReceived(ctx context.Context, line string)
	Exited(ctx context.Context, code int)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) OutputReceived(context.Context, string) {}
func (NopObserver) ErrorReceived(context.Context, string)  {}
func (NopObserver) Exited(context.Context, int)            {}

// LogObserver forwards the gateway stream to slog.
type LogObserver struct {
	Logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return LogObserver{Logger: logger}
}

func (o LogObserver) OutputReceived(ctx context.Context, line string) {
	o.Logger.InfoContext(ctx, "gateway", "stream", "stdout", "line", line)
}

func (o LogObserver) ErrorReceived(ctx context.Context, line string) {
	o.Logger.WarnContext(ctx, "gateway", "stream", "stderr", "line", line)
}

func (o LogObserver) Exited(ctx context.Context, code int) {
	o.Logger.InfoContext(ctx, "gateway exited", "code", code)
}
