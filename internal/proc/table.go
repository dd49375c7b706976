package proc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Info is a single row of the OS process table.
type Info struct {
	Pid   int32
	Name  string
	Title string // main window title, empty where the platform has none
}

// Table is the OS process table capability used by the termination sweeps.
// SystemTable is the real implementation; tests inject a fake listing.
type Table interface {
	Processes(ctx context.Context) ([]Info, error)
	// Kill forcibly ends the process.
	Kill(ctx context.Context, pid int32) error
	// Terminate asks the process to exit (SIGTERM on Unix).
	Terminate(ctx context.Context, pid int32) error
}

// KillByTitle force-kills every process whose window title contains substr,
// compared case-insensitively. Failures on individual processes are logged
// and skipped so one inaccessible process does not abort the sweep.
// It returns the number of killed processes.
func KillByTitle(ctx context.Context, t Table, substr string) (int, error) {
	if substr == "" {
		return 0, nil
	}
	infos, err := t.Processes(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	needle := strings.ToLower(substr)
	var killed int
	for _, info := range infos {
		if info.Title == "" || !strings.Contains(strings.ToLower(info.Title), needle) {
			continue
		}
		if err := t.Kill(ctx, info.Pid); err != nil {
			slog.DebugContext(ctx, "kill failed: ignoring", "pid", info.Pid, "title", info.Title, "error", err)
			continue
		}
		slog.InfoContext(ctx, "process killed", "pid", info.Pid, "title", info.Title)
		killed++
	}
	return killed, nil
}

// TerminateByName sends a termination request to every process whose name
// equals one of names. Individual failures are ignored.
// It returns the number of signalled processes.
func TerminateByName(ctx context.Context, t Table, names ...string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	infos, err := t.Processes(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	var signalled int
	for _, info := range infos {
		if !slices.Contains(names, info.Name) {
			continue
		}
		if err := t.Terminate(ctx, info.Pid); err != nil {
			slog.DebugContext(ctx, "terminate failed: ignoring", "pid", info.Pid, "name", info.Name, "error", err)
			continue
		}
		slog.InfoContext(ctx, "process terminated", "pid", info.Pid, "name", info.Name)
		signalled++
	}
	return signalled, nil
}
