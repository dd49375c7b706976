package proc

import (
	"context"
	"log/slog"

	"github.com/shirou/gopsutil/v4/process"
)

// SystemTable is the Table backed by the real OS process table.
type SystemTable struct{}

func NewSystemTable() SystemTable {
	return SystemTable{}
}

func (SystemTable) Processes(ctx context.Context) ([]Info, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	titles, err := windowTitles(ctx)
	if err != nil {
		slog.DebugContext(ctx, "window titles not available", "error", err)
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		// processes may vanish or deny access while we iterate
		name, _ := p.NameWithContext(ctx)
		infos = append(infos, Info{
			Pid:   p.Pid,
			Name:  name,
			Title: titles[p.Pid],
		})
	}
	return infos, nil
}

func (SystemTable) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}

func (SystemTable) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}
