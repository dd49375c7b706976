package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the ways a start attempt can fail.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindProcessStartFailed
	KindLoginFailed
	KindExistingSessionDetected
	KindSecurityDialogDetected
	KindTwoFactorConfirmationTimeout
)

var (
	ErrProcessStartFailed           = errors.New("process start failed")
	ErrLoginFailed                  = errors.New("login failed")
	ErrExistingSessionDetected      = errors.New("existing session detected")
	ErrSecurityDialogDetected       = errors.New("security code dialog detected")
	ErrTwoFactorConfirmationTimeout = errors.New("second factor confirmation timed out")
)

var kindErrors = map[ErrorKind]error{
	KindProcessStartFailed:           ErrProcessStartFailed,
	KindLoginFailed:                  ErrLoginFailed,
	KindExistingSessionDetected:      ErrExistingSessionDetected,
	KindSecurityDialogDetected:       ErrSecurityDialogDetected,
	KindTwoFactorConfirmationTimeout: ErrTwoFactorConfirmationTimeout,
}

func (k ErrorKind) String() string {
	if k == KindNone {
		return "none"
	}
	if err, ok := kindErrors[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Result is the outcome of a start attempt. The zero value is success.
// A successful Result may still carry an informational Message, e.g. when
// initialization timed out without a definite answer.
type Result struct {
	Kind    ErrorKind
	Message string
}

func Success() Result {
	return Result{}
}

func Failure(kind ErrorKind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Err returns nil on success, otherwise an *Error matching the kind's
// sentinel through errors.Is.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

func (r Result) String() string {
	switch {
	case r.OK() && r.Message == "":
		return "success"
	case r.OK():
		return "success: " + r.Message
	case r.Message == "":
		return r.Kind.String()
	default:
		return r.Kind.String() + ": " + r.Message
	}
}

// Error is the error form of a failed Result.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return kindErrors[e.Kind]
}
