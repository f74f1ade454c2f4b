package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"capsule/internal/config"
	"capsule/internal/diag"
	"capsule/internal/session"
	"capsule/internal/value"
	"capsule/internal/wire"
)

const program = `scale = 4
def main():
    return [scale, scale * 3]
def even(n):
    return True if n == 0 else odd(n - 1)
def odd(n):
    return False if n == 0 else even(n - 1)
_hidden = 1
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("capsule %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func workspace(t *testing.T) (dir, cfg, src string) {
	t.Helper()
	dir = t.TempDir()
	cfg = filepath.Join(dir, "capsule.toml")
	src = filepath.Join(dir, "prog.py")
	if err := os.WriteFile(cfg, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte(program), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, cfg, src
}

func TestCaptureInspectRun(t *testing.T) {
	dir, cfg, src := workspace(t)
	out := execute(t, "--config", cfg, "capture", src, "--root", "main,even", "-o", dir, "--ui", "off")
	if !strings.Contains(out, "main.caps") || !strings.Contains(out, "even.caps") {
		t.Fatalf("capture output = %q", out)
	}

	env, err := wire.ReadFile(filepath.Join(dir, "even.caps"))
	if err != nil {
		t.Fatal(err)
	}
	report, err := buildReport(env)
	if err != nil {
		t.Fatal(err)
	}
	var cyclic int
	for _, c := range report.Components {
		if c.Cyclic {
			cyclic++
			if len(c.Members) != 2 {
				t.Fatalf("cyclic component = %v", c.Members)
			}
		}
	}
	if cyclic != 1 {
		t.Fatalf("components = %+v", report.Components)
	}

	out = execute(t, "--config", cfg, "inspect", filepath.Join(dir, "even.caps"), "--format", "yaml")
	if !strings.Contains(out, "cyclic: true") {
		t.Fatalf("inspect output = %q", out)
	}

	out = execute(t, "--config", cfg, "run", filepath.Join(dir, "main.caps"), "--call", "--format", "json")
	var payload outcomePayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if payload.Raised || payload.Repr != "[4, 12]" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestSelectRootsDefaultsToPublicCode(t *testing.T) {
	mod := value.NewModule("prog", "prog.py")
	mod.Attrs.Set("scale", value.Int(4))
	mod.Attrs.Set("main", &value.Function{Name: "main"})
	mod.Attrs.Set("_helper", &value.Function{Name: "_helper"})
	mod.Attrs.Set("Point", &value.Class{Name: "Point"})

	roots, err := selectRoots(mod, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 || roots[0].Name != "main" || roots[1].Name != "Point" {
		t.Fatalf("roots = %+v", roots)
	}

	if _, err := selectRoots(mod, []string{"missing"}); err == nil {
		t.Fatal("expected an error for a missing root")
	}
	roots, err = selectRoots(mod, []string{"scale", " scale", ""})
	if err != nil || len(roots) != 1 {
		t.Fatalf("roots = %+v, err = %v", roots, err)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatal("expected an error")
	}
	if uiModeOn.progress(true) || uiModeOff.progress(false) || !uiModeOn.progress(false) {
		t.Fatal("progress ignores quiet or mode")
	}
}

func TestCaptureUIModeFallsBackToConfig(t *testing.T) {
	cfg := config.Default()
	cfg.UI.Mode = "on"
	cmd := &cobra.Command{Use: "capture"}
	cmd.Flags().String("ui", "", "")

	mode, err := captureUIMode(cmd, cfg)
	if err != nil || mode != uiModeOn {
		t.Fatalf("mode = %q, %v", mode, err)
	}
	if err := cmd.Flags().Set("ui", "off"); err != nil {
		t.Fatal(err)
	}
	mode, err = captureUIMode(cmd, cfg)
	if err != nil || mode != uiModeOff {
		t.Fatalf("mode = %q, %v", mode, err)
	}
}

func TestCheckFailOn(t *testing.T) {
	warned := []*session.Capture{
		{Name: "clean"},
		{Name: "t", Diagnostics: []diag.Diagnostic{{Severity: diag.SevWarning, Code: diag.CapUnconvertible}}},
	}
	if err := checkFailOn(warned, diag.SevError); err != nil {
		t.Fatalf("warnings failed an error threshold: %v", err)
	}
	err := checkFailOn(warned, diag.SevWarning)
	if err == nil || !strings.Contains(err.Error(), "capture t") {
		t.Fatalf("err = %v", err)
	}
}
