package gateway

import "strings"

// Event is a lifecycle event recognized in the gateway output.
type Event int

const (
	EventNone Event = iota
	EventLoginFailed
	EventExistingSessionDetected
	EventTwoFactorWindowOpened
	EventSecurityDialogDetected
	EventInitializationComplete
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventLoginFailed:
		return "login failed"
	case EventExistingSessionDetected:
		return "existing session detected"
	case EventTwoFactorWindowOpened:
		return "second factor window opened"
	case EventSecurityDialogDetected:
		return "security dialog detected"
	case EventInitializationComplete:
		return "initialization complete"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event resolves the initialization wait.
func (e Event) Terminal() bool {
	switch e {
	case EventLoginFailed, EventExistingSessionDetected, EventSecurityDialogDetected, EventInitializationComplete:
		return true
	default:
		return false
	}
}

// Kind returns the error kind a terminal error event latches, or KindNone.
func (e Event) Kind() ErrorKind {
	switch e {
	case EventLoginFailed:
		return KindLoginFailed
	case EventExistingSessionDetected:
		return KindExistingSessionDetected
	case EventSecurityDialogDetected:
		return KindSecurityDialogDetected
	default:
		return KindNone
	}
}

// rule order is the match priority: errors always win over success
var rules = []struct {
	event Event
	match func(line string) bool
}{
	{EventLoginFailed, contains("Login failed")},
	{EventExistingSessionDetected, contains("Existing session detected")},
	{EventTwoFactorWindowOpened, func(line string) bool {
		return strings.Contains(line, "Second Factor Authentication") && strings.Contains(line, "[WINDOW_OPENED]")
	}},
	{EventSecurityDialogDetected, func(line string) bool {
		return strings.Contains(line, "Security Code Card Authentication") || strings.Contains(line, "Enter security code")
	}},
	{EventInitializationComplete, contains("Configuration settings updated")},
}

func contains(substr string) func(string) bool {
	return func(line string) bool {
		return strings.Contains(line, substr)
	}
}

// Classify maps a single output line to the first matching event.
func Classify(line string) Event {
	for _, r := range rules {
		if r.match(line) {
			return r.event
		}
	}
	return EventNone
}
