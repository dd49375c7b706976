package proc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Run executes a short-lived helper synchronously and forwards each line of
// its combined output to fn.
func Run(ctx context.Context, proto Command, fn LineFunc) error {
	cmd := exec.CommandContext(ctx, proto.Path, proto.Args...) //nolint:gosec // helper commands are fixed
	cmd.Env = proto.Env
	cmd.Dir = proto.Dir

	out, err := cmd.CombinedOutput()
	if fn != nil {
		scanner := bufio.NewScanner(bytes.NewReader(out))
		for scanner.Scan() {
			fn(ctx, scanner.Text())
		}
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", proto.Path, err)
	}
	return nil
}
