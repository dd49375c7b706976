//go:build windows

package proc

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os/exec"
	"strconv"
)

// tasklist /V prints the main window title in its last column:
// "Image Name","PID","Session Name","Session#","Mem Usage","Status","User Name","CPU Time","Window Title"
const (
	tasklistPidCol   = 1
	tasklistTitleCol = 8
)

func windowTitles(ctx context.Context) (map[int32]string, error) {
	out, err := exec.CommandContext(ctx, "tasklist", "/V", "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, err
	}
	return parseTasklist(out)
}

func parseTasklist(out []byte) (map[int32]string, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1

	titles := make(map[int32]string)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return titles, nil
		}
		if err != nil {
			return titles, err
		}
		if len(rec) <= tasklistTitleCol {
			continue
		}
		pid, err := strconv.ParseInt(rec[tasklistPidCol], 10, 32)
		if err != nil {
			continue
		}
		if title := rec[tasklistTitleCol]; title != "N/A" {
			titles[int32(pid)] = title
		}
	}
}
