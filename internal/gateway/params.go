package gateway

import (
	"log/slog"
	"strconv"
	"time"
)

// TradingMode selects the gateway account type.
type TradingMode string

const (
	TradingModePaper TradingMode = "paper"
	TradingModeLive  TradingMode = "live"
)

// Params are the immutable launch parameters of one gateway session.
type Params struct {
	Root        string
	Version     string
	User        string
	Password    string
	TradingMode TradingMode
	Port        int
}

// Args returns the launcher's positional arguments in their fixed order.
func (p Params) Args() []string {
	return []string{
		p.Root,
		p.Version,
		p.User,
		p.Password,
		string(p.TradingMode),
		strconv.Itoa(p.Port),
	}
}

// LogValue keeps the password out of logs.
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("root", p.Root),
		slog.String("version", p.Version),
		slog.String("user", p.User),
		slog.String("mode", string(p.TradingMode)),
		slog.Int("port", p.Port),
	)
}

// Config configures a Supervisor. Zero durations and empty strings fall back
// to the defaults below.
type Config struct {
	Params Params

	// ScriptsDir is the directory holding the launcher script.
	ScriptsDir string

	// DisplayName is matched against window titles by the kill sweep on Windows.
	DisplayName string

	// HelperProcesses are terminated by name on Stop outside Windows.
	HelperProcesses []string

	// InitTimeout bounds the wait for the first terminal event.
	InitTimeout time.Duration

	// TwoFactorTimeout is the extra wait granted once a second factor dialog opened.
	TwoFactorTimeout time.Duration

	// RestartPause lets OS-level teardown settle between Stop and Start.
	RestartPause time.Duration
}

const (
	DefaultScriptsDir       = "scripts"
	DefaultDisplayName      = "IB Gateway"
	DefaultInitTimeout      = 60 * time.Second
	DefaultTwoFactorTimeout = 3 * time.Minute
	DefaultRestartPause     = 2500 * time.Millisecond
)

var DefaultHelperProcesses = []string{"ibcstart.sh", "ibgateway", "Xvfb"}

func (c Config) withDefaults() Config {
	if c.ScriptsDir == "" {
		c.ScriptsDir = DefaultScriptsDir
	}
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName
	}
	if c.HelperProcesses == nil {
		c.HelperProcesses = DefaultHelperProcesses
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = DefaultInitTimeout
	}
	if c.TwoFactorTimeout == 0 {
		c.TwoFactorTimeout = DefaultTwoFactorTimeout
	}
	if c.RestartPause == 0 {
		c.RestartPause = DefaultRestartPause
	}
	return c
}
