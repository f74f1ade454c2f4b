// Package config loads capsule.toml.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"capsule/internal/diag"
	"capsule/internal/resolve"
	"capsule/internal/source"
	"capsule/internal/trace"
)

// FileName is the config file looked up from the working directory upwards.
const FileName = "capsule.toml"

//go:embed schema.cue
var schema string

type Config struct {
	Capture   Capture   `toml:"capture" json:"capture"`
	Store     Store     `toml:"store" json:"store"`
	Transform Transform `toml:"transform" json:"transform"`
	Trace     Trace     `toml:"trace" json:"trace"`
	Log       Log       `toml:"log" json:"log"`
	UI        UI        `toml:"ui" json:"ui"`
	// Jobs bounds concurrent capture sessions; zero means GOMAXPROCS.
	Jobs int `toml:"jobs" json:"jobs"`
}

type Capture struct {
	ReservedNames  []string `toml:"reserved_names" json:"reserved_names"`
	MaxDepth       int      `toml:"max_depth" json:"max_depth"`
	PackPrimitives bool     `toml:"pack_primitives" json:"pack_primitives"`
	// FailOn is the lowest diagnostic severity that fails a capture.
	FailOn string `toml:"fail_on" json:"fail_on"`
}

type Store struct {
	Backend string `toml:"backend" json:"backend"`
	Path    string `toml:"path" json:"path"`
}

type Transform struct {
	MaxBytes int `toml:"max_bytes" json:"max_bytes"`
}

type Trace struct {
	Level  string `toml:"level" json:"level"`
	Mode   string `toml:"mode" json:"mode"`
	Output string `toml:"output" json:"output"`
}

type Log struct {
	Level string `toml:"level" json:"level"`
}

type UI struct {
	// Mode is the capture progress display: auto, on or off.
	Mode string `toml:"mode" json:"mode"`
}

func Default() Config {
	return Config{
		Capture:   Capture{ReservedNames: []string{resolve.DefaultReserved}, MaxDepth: 2000, PackPrimitives: true, FailOn: "error"},
		Store:     Store{Backend: "memory"},
		Transform: Transform{},
		Trace:     Trace{Level: "off", Mode: "ring"},
		Log:       Log{Level: "info"},
		UI:        UI{Mode: "auto"},
	}
}

// Find walks up from startDir to locate capsule.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, diag.Wrap(diag.IOLoadFileError, err, "read %s", path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		if de, ok := diag.AsError(err); ok && de.Pos.Path == "" {
			de.Pos.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(text string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, diag.Wrap(diag.StoConfig, err, "failed to parse TOML")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, diag.Errorf(diag.StoConfig, source.Position{}, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	if cfg.Capture.ReservedNames == nil {
		cfg.Capture.ReservedNames = []string{}
	}
	ctx := cuecontext.New()
	def := ctx.CompileString(schema, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return diag.Wrap(diag.StoConfig, err, "config schema")
	}
	v := def.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return diag.Wrap(diag.StoConfig, err, "invalid config: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// TraceConfig converts the [trace] section.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{Level: level, Mode: mode, OutputPath: c.Trace.Output}, nil
}

// FailOn converts capture.fail_on.
func (c Config) FailOn() (diag.Severity, error) {
	return diag.ParseSeverity(c.Capture.FailOn)
}

// LogLevel converts the [log] section.
func (c Config) LogLevel() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.Log.Level)
}
