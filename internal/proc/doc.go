// Package proc owns the OS processes started by the supervisor.
//
// Spawn is a thin, opinionated wrapper around os/exec:
//   - starts the process in its own process group (Unix)
//   - reads stdout and stderr line by line from the moment of start
//   - reaps the process as soon as it exits, even while a background child
//     still holds its output streams open
//   - reports the exit code once the streams are drained, or after a short
//     grace period when they stay open
//
// Liveness is observed lazily through Handle.IsAlive; nothing watches the
// handle on behalf of its owner.
//
// Table abstracts the OS process table so the best-effort termination sweeps
// (KillByTitle, TerminateByName) can be tested against a fake listing.
package proc
