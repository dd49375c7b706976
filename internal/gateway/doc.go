// Package gateway turns the unstructured console output of the trading
// gateway into a synchronous start protocol.
//
// Overview
// The gateway has no startup API. It only prints log lines and raises
// dialogs. The Supervisor launches it through a platform specific launcher
// script, classifies every stdout line and blocks Start until a terminal
// line was seen or the timeouts ran out.
//
// Data flow:
//
//	Supervisor.Start        proc.Handle             Classify            Gate
//	     |                      |                      |                  |
//	     | Arm() -------------------------------------------------------->|
//	     | Spawn() ------------>| stdout reader        |                  |
//	     |                      |--- line ------------>|                  |
//	     |                      |                      |-- terminal ----->| Signal()
//	     | Wait(init) <---------------------------------------------------|
//	     | Wait(2FA) if a second factor window opened meanwhile           |
//	     v Result
//
// Timeout ladder:
//   - InitTimeout (60s) for the first terminal event.
//   - TwoFactorTimeout (3m) more, only when the second factor window opened
//     before InitTimeout expired. Running out latches
//     KindTwoFactorConfirmationTimeout.
//   - A plain InitTimeout without a second factor window is not an error:
//     Start returns success with an informational message.
//   - A cancelled Start context ends either wait the same way, naming the
//     cancellation in the message. Nothing is latched.
//
// Invariants:
//   - At most one of Start, Stop, Restart runs at a time.
//   - Errors read from the gateway output are latched for the lifetime of the
//     Supervisor. Start returns the latched error without launching again.
//   - KindProcessStartFailed is not latched; a later Start may retry.
//   - The second factor flag never outlives the Start call that saw it.
//   - Lines from a process of an earlier attempt neither latch nor signal.
package gateway
