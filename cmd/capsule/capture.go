package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"capsule/internal/config"
	"capsule/internal/diag"
	"capsule/internal/interp"
	"capsule/internal/purity"
	"capsule/internal/registry"
	"capsule/internal/registry/sqlstore"
	"capsule/internal/session"
	"capsule/internal/trace"
	"capsule/internal/value"
	"capsule/internal/walker"
	"capsule/internal/wire"
)

var captureCmd = &cobra.Command{
	Use:   "capture <file.py>",
	Short: "Run a program and capture its top-level values into envelopes",
	Long: `capture runs the program, then walks each requested root and writes one
envelope per root to <out>/<root>.caps. Without --root every public
function and class of the module is captured.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringSlice("root", nil, "module attributes to capture (repeat or comma separate)")
	captureCmd.Flags().StringP("out", "o", ".", "directory for the written envelopes")
	captureCmd.Flags().String("ui", "", "progress UI (auto|on|off; default [ui] mode)")
	captureCmd.Flags().String("fail-on", "", "lowest diagnostic severity that fails the command (warning|error)")
	captureCmd.Flags().Int("jobs", 0, "concurrent capture sessions (0 = config or GOMAXPROCS)")
	captureCmd.Flags().String("store", "", "definition store backend (memory|sqlite)")
	captureCmd.Flags().String("db", "", "sqlite database path for --store sqlite")
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := cli.cfg
	if err := applyCaptureFlags(cmd, &cfg); err != nil {
		return err
	}
	mode, err := captureUIMode(cmd, cfg)
	if err != nil {
		return err
	}
	failOn, err := cfg.FailOn()
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	names, err := cmd.Flags().GetStringSlice("root")
	if err != nil {
		return err
	}

	in := interp.New(interp.Options{Stdout: cmd.ErrOrStderr(), Logger: cli.log})
	var mod *value.Module
	err = cli.timer.Track("run "+filepath.Base(args[0]), func() (err error) {
		mod, err = in.RunFile(args[0])
		return err
	})
	if err != nil {
		return err
	}
	roots, err := selectRoots(mod, names)
	if err != nil {
		return err
	}

	opts := session.Options{
		Walker: walker.Options{
			Files:     in.Files(),
			Builtins:  in.Builtins(),
			Purity:    purity.Default(),
			Reserved:  cfg.Capture.ReservedNames,
			MaxDepth:  cfg.Capture.MaxDepth,
			NoPacking: !cfg.Capture.PackPrimitives,
			Tracer:    trace.FromContext(ctx),
		},
		Logger: cli.log,
	}
	if cfg.Store.Backend == "sqlite" {
		db, err := sqlstore.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Store = sqliteFactory(db)
	}

	var captures []*session.Capture
	err = cli.timer.Track("capture", func() (err error) {
		if mode.progress(cli.quiet) {
			captures, err = runCaptureWithUI(ctx, "capturing "+filepath.Base(args[0]), roots, opts, cfg.Jobs)
		} else {
			captures, err = session.CaptureAll(ctx, roots, opts, cfg.Jobs, nil)
		}
		return err
	})
	if err != nil {
		return err
	}
	err = cli.timer.Track("write", func() error {
		return writeCaptures(cmd, outDir, captures)
	})
	if err != nil {
		return err
	}
	return checkFailOn(captures, failOn)
}

// checkFailOn fails when any capture reported a diagnostic at or above
// failOn. The envelopes are already written by then.
func checkFailOn(captures []*session.Capture, failOn diag.Severity) error {
	for _, c := range captures {
		if worst, ok := diag.Worst(c.Diagnostics); ok && worst >= failOn {
			return fmt.Errorf("capture %s reported a diagnostic of severity %s (fail on %s)", c.Name, worst, failOn)
		}
	}
	return nil
}

func applyCaptureFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("jobs") {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return err
		}
		cfg.Jobs = jobs
	}
	if backend, _ := cmd.Flags().GetString("store"); backend != "" {
		cfg.Store.Backend = backend
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.Store.Path = path
	}
	if sev, _ := cmd.Flags().GetString("fail-on"); sev != "" {
		cfg.Capture.FailOn = sev
	}
	return config.Validate(*cfg)
}

func sqliteFactory(db *sqlstore.DB) session.StoreFactory {
	return func() (registry.Store, uuid.UUID, error) {
		st, err := db.NewSession()
		if err != nil {
			return nil, uuid.Nil, err
		}
		return st, st.Session(), nil
	}
}

// selectRoots resolves names against the module namespace. With no names it
// picks every public function and class in definition order.
func selectRoots(mod *value.Module, names []string) ([]session.Root, error) {
	if len(names) == 0 {
		var roots []session.Root
		for _, name := range mod.Attrs.Names() {
			if strings.HasPrefix(name, "_") {
				continue
			}
			v, _ := mod.Attrs.Get(name)
			switch v.(type) {
			case *value.Function, *value.Class:
				roots = append(roots, session.Root{Name: name, Value: v})
			}
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("%s defines no public functions or classes; pass --root", mod.Path)
		}
		return roots, nil
	}
	seen := make(map[string]bool, len(names))
	roots := make([]session.Root, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		v, ok := mod.Attrs.Get(name)
		if !ok {
			return nil, fmt.Errorf("%s has no attribute %q", mod.Path, name)
		}
		roots = append(roots, session.Root{Name: name, Value: v})
	}
	return roots, nil
}

func writeCaptures(cmd *cobra.Command, outDir string, captures []*session.Capture) error {
	out := cmd.OutOrStdout()
	okColor := color.New(color.FgGreen, color.Bold)
	sorted := append([]*session.Capture(nil), captures...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, c := range sorted {
		path := filepath.Join(outDir, c.Name+".caps")
		if err := wire.WriteFile(path, c.Envelope); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if !cli.quiet {
			fmt.Fprintf(out, "%s %s -> %s (%d records, session %s)\n",
				okColor.Sprint("captured"), c.Name, path, len(c.Envelope.Records), c.ID)
		}
		if text := diag.FormatShort(c.Diagnostics, nil); text != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), text)
		}
	}
	return nil
}
