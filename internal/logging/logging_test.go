package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"capsule/internal/logging"
)

func TestEnvOverrides(t *testing.T) {
	t.Setenv(logging.EnvLogLevel, "warning")
	t.Setenv(logging.EnvLogNoColor, "true")
	t.Setenv(logging.EnvLogTimestamp, "nope")
	cfg := logging.DefaultConfig(logging.ProfileTest)
	logging.ApplyEnv(&cfg)
	if cfg.Level != zerolog.WarnLevel || !cfg.NoColor || cfg.Timestamp {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := logging.DefaultConfig(logging.ProfileTest)
	cfg.NoColor = true
	cfg.Out = &buf
	log := logging.New(cfg)
	log.Debug().Str("root", "f").Msg("captured")
	log.Trace().Msg("hidden")
	out := buf.String()
	if !strings.Contains(out, "captured") || !strings.Contains(out, "root=f") {
		t.Fatalf("out = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("trace line written: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]zerolog.Level{"off": zerolog.Disabled, " INFO ": zerolog.InfoLevel, "trace": zerolog.TraceLevel} {
		if got, ok := logging.ParseLevel(raw); !ok || got != want {
			t.Errorf("%q = %v %v", raw, got, ok)
		}
	}
	if _, ok := logging.ParseLevel("loud"); ok {
		t.Error("loud accepted")
	}
}
