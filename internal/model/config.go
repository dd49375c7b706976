package model

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"github.com/gwauto/gwsupervisor/internal/log"

	_ "embed"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Gateway Gateway `json:"gateway" yaml:"gateway"`
	Service Service `json:"service" yaml:"service"`
}

// Gateway holds the launch parameters, passed to the launcher in this order:
// root, version, user, password, mode, port.
type Gateway struct {
	Root        string   `json:"root" yaml:"root"`
	Version     string   `json:"version" yaml:"version"`
	User        string   `json:"user" yaml:"user"`
	Password    string   `json:"password" yaml:"password"` // may be overridden by GWSUPERVISOR_PASSWORD
	Mode        string   `json:"mode" yaml:"mode"`         // "paper" | "live"
	Port        int      `json:"port" yaml:"port"`
	Scripts     *string  `json:"scripts,omitempty" yaml:"scripts,omitempty"`           // launcher directory
	DisplayName *string  `json:"display_name,omitempty" yaml:"display_name,omitempty"` // window title for the kill sweep
	Helpers     []string `json:"helpers,omitempty" yaml:"helpers,omitempty"`           // process names for the signal sweep
}

type Service struct {
	Verbose  bool      `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Log      *string   `json:"log,omitempty" yaml:"log,omitempty"` // "stderr"|"stdout"|"discard"|path
	Timeouts *Timeouts `json:"timeouts,omitempty" yaml:"timeouts,omitempty"`
	Restart  *Restart  `json:"restart,omitempty" yaml:"restart,omitempty"`
}

// Timeouts use Go duration syntax, e.g. 60s, 3m, 2500ms.
type Timeouts struct {
	Init         *string `json:"init,omitempty" yaml:"init,omitempty"`
	TwoFactor    *string `json:"two_factor,omitempty" yaml:"two_factor,omitempty"`
	RestartPause *string `json:"restart_pause,omitempty" yaml:"restart_pause,omitempty"`
}

// Restart schedules periodic gateway restarts.
type Restart struct {
	Cron string `json:"cron" yaml:"cron"`
}

// DefaultConfig points at the public paper trading demo account.
func DefaultConfig() Config {
	stderr := log.Stderr
	return Config{
		Version: 0,
		Gateway: Gateway{
			Root:     "/opt/ibgateway",
			Version:  "1019",
			User:     "edemo",
			Password: "demouser",
			Mode:     ModePaper,
			Port:     4002,
		},
		Service: Service{
			Log: &stderr,
		},
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// Duration parses an optional duration, returning def when s is nil.
func Duration(s *string, def time.Duration) (time.Duration, error) {
	if s == nil {
		return def, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", *s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", *s)
	}
	return d, nil
}
