package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"capsule/internal/config"
	"capsule/internal/diag"
	"capsule/internal/trace"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, config.Validate(config.Default()))
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := config.Parse(`
jobs = 4

[capture]
max_depth = 50
pack_primitives = false
fail_on = "warning"

[store]
backend = "sqlite"
path = "capsule.db"

[trace]
level = "phase"
mode = "stream"
output = "-"

[log]
level = "debug"

[ui]
mode = "off"
`)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Jobs)
	require.Equal(t, 50, cfg.Capture.MaxDepth)
	require.False(t, cfg.Capture.PackPrimitives)
	require.Equal(t, []string{"__inline_remote"}, cfg.Capture.ReservedNames)
	require.Equal(t, "capsule.db", cfg.Store.Path)

	tc, err := cfg.TraceConfig()
	require.NoError(t, err)
	require.Equal(t, trace.LevelPhase, tc.Level)
	require.Equal(t, trace.ModeStream, tc.Mode)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, lvl)

	failOn, err := cfg.FailOn()
	require.NoError(t, err)
	require.Equal(t, diag.SevWarning, failOn)
	require.Equal(t, "off", cfg.UI.Mode)
}

func TestSchemaRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"backend":       "[store]\nbackend = \"redis\"\n",
		"sqlite path":   "[store]\nbackend = \"sqlite\"\n",
		"depth":         "[capture]\nmax_depth = 0\n",
		"reserved name": "[capture]\nreserved_names = [\"not a name\"]\n",
		"trace level":   "[trace]\nlevel = \"loud\"\n",
		"ui mode":       "[ui]\nmode = \"sometimes\"\n",
		"fail on":       "[capture]\nfail_on = \"info\"\n",
		"unknown key":   "[capture]\ncolour = true\n",
		"bad toml":      "[capture\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse(text)
			require.Error(t, err)
			require.True(t, diag.IsCode(err, diag.StoConfig), "err = %v", err)
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte("jobs = 2\n"), 0o600))

	path, ok, err := config.Find(nested)
	require.NoError(t, err)
	require.True(t, ok)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Jobs)
}
