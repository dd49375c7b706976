//go:build !windows

package proc

import "context"

// Only Windows exposes window titles through the process table.
func windowTitles(_ context.Context) (map[int32]string, error) {
	return nil, nil
}
