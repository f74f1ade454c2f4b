package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"capsule/internal/interp"
	"capsule/internal/purity"
	"capsule/internal/session"
	"capsule/internal/value"
	"capsule/internal/wire"
)

var runCmd = &cobra.Command{
	Use:   "run <file.caps>",
	Short: "Rebuild an envelope, optionally call its root, and print the transformed result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		call, err := cmd.Flags().GetBool("call")
		if err != nil {
			return err
		}
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		maxBytes := cli.cfg.Transform.MaxBytes
		if cmd.Flags().Changed("max-bytes") {
			if maxBytes, err = cmd.Flags().GetInt("max-bytes"); err != nil {
				return err
			}
		}

		var env *wire.Envelope
		err = cli.timer.Track("read", func() (err error) {
			env, err = wire.ReadFile(args[0])
			return err
		})
		if err != nil {
			return err
		}
		in := interp.New(interp.Options{Stdout: cmd.OutOrStdout(), Logger: cli.log})
		var out *session.Outcome
		err = cli.timer.Track("submit", func() (err error) {
			out, err = session.Submit(cmd.Context(), env, session.SubmitOptions{
				Call:     call,
				Interp:   in,
				Purity:   purity.Default(),
				MaxBytes: maxBytes,
				Logger:   cli.log,
			})
			return err
		})
		if err != nil {
			return err
		}
		return renderOutcome(cmd, out, format)
	},
}

func init() {
	runCmd.Flags().Bool("call", false, "call the rebuilt root with no arguments")
	runCmd.Flags().String("format", "text", "output format (text|json|yaml)")
	runCmd.Flags().Int("max-bytes", 0, "byte budget for the transformed result (0 = config or unlimited)")
}

type outcomePayload struct {
	Raised  bool   `json:"raised" yaml:"raised"`
	Repr    string `json:"repr" yaml:"repr"`
	Objects int    `json:"objects" yaml:"objects"`
	Bytes   int    `json:"bytes" yaml:"bytes"`
	Tree    any    `json:"tree" yaml:"tree"`
}

func renderOutcome(cmd *cobra.Command, out *session.Outcome, format string) error {
	payload := outcomePayload{
		Raised:  out.Raised,
		Repr:    value.Repr(out.Value),
		Objects: len(out.Result.Objects),
		Bytes:   out.Result.Bytes,
		Tree:    out.Result.Tree(),
	}
	w := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		label := color.New(color.FgGreen, color.Bold).Sprint("result")
		if payload.Raised {
			label = color.New(color.FgRed, color.Bold).Sprint("raised")
		}
		fmt.Fprintf(w, "%s %s\n", label, payload.Repr)
		if !cli.quiet {
			fmt.Fprintf(w, "%d objects, %d bytes\n", payload.Objects, payload.Bytes)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or yaml)", format)
	}
}
