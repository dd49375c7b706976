package gateway

import (
	"context"
	"log/slog"

	"github.com/gwauto/gwsupervisor/internal/proc"
)

// TerminateFunc is the platform sweep run on Stop. It is best effort and
// must not block until the processes are gone.
type TerminateFunc func(ctx context.Context, table proc.Table, cfg Config)

// Platform holds everything that differs between operating systems.
type Platform struct {
	// Launcher is the launcher script name inside Config.ScriptsDir.
	Launcher string
	// MakeExecutable runs chmod +x on the launcher before every spawn.
	MakeExecutable bool
	Terminate      TerminateFunc
}

// hostPlatform is chosen once from the running OS.
var hostPlatform = newHostPlatform()

// HostPlatform returns the platform of the running OS.
func HostPlatform() Platform {
	return hostPlatform
}

// KillByDisplayName force-kills every process whose window title contains
// the gateway display name.
func KillByDisplayName(ctx context.Context, table proc.Table, cfg Config) {
	n, err := proc.KillByTitle(ctx, table, cfg.DisplayName)
	if err != nil {
		slog.WarnContext(ctx, "kill sweep failed", "display_name", cfg.DisplayName, "error", err)
		return
	}
	slog.DebugContext(ctx, "kill sweep done", "display_name", cfg.DisplayName, "killed", n)
}

// TerminateHelpers signals the gateway helper processes by name.
func TerminateHelpers(ctx context.Context, table proc.Table, cfg Config) {
	n, err := proc.TerminateByName(ctx, table, cfg.HelperProcesses...)
	if err != nil {
		slog.WarnContext(ctx, "terminate sweep failed", "helpers", cfg.HelperProcesses, "error", err)
		return
	}
	slog.DebugContext(ctx, "terminate sweep done", "helpers", cfg.HelperProcesses, "signalled", n)
}
