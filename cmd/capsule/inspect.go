package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"capsule/internal/defs"
	"capsule/internal/graph"
	"capsule/internal/wire"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.caps>",
	Short: "Show the records, components and rebuild order of an envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		env, err := wire.ReadFile(args[0])
		if err != nil {
			return err
		}
		report, err := buildReport(env)
		if err != nil {
			return err
		}
		return renderReport(cmd.OutOrStdout(), report, format)
	},
}

func init() {
	inspectCmd.Flags().String("format", "text", "output format (text|json|yaml)")
}

type recordInfo struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      string   `json:"kind" yaml:"kind"`
	Deps      []string `json:"deps,omitempty" yaml:"deps,omitempty"`
	Component int      `json:"component" yaml:"component"`
}

type componentInfo struct {
	Index   int      `json:"index" yaml:"index"`
	Members []string `json:"members" yaml:"members"`
	Cyclic  bool     `json:"cyclic,omitempty" yaml:"cyclic,omitempty"`
}

type inspectReport struct {
	Schema     uint16          `json:"schema" yaml:"schema"`
	Session    string          `json:"session,omitempty" yaml:"session,omitempty"`
	Root       string          `json:"root" yaml:"root"`
	Kinds      map[string]int  `json:"kinds" yaml:"kinds"`
	Records    []recordInfo    `json:"records" yaml:"records"`
	Components []componentInfo `json:"components" yaml:"components"`
	// Batches lists component indexes; every batch depends only on earlier
	// ones.
	Batches [][]int `json:"batches" yaml:"batches"`
}

func buildReport(env *wire.Envelope) (*inspectReport, error) {
	reg, err := wire.Import(env)
	if err != nil {
		return nil, err
	}
	g, err := reg.DependencyGraph(env.Root)
	if err != nil {
		return nil, err
	}
	cond := graph.Condense(g)
	report := &inspectReport{
		Schema:  env.Schema,
		Session: env.Session,
		Root:    env.Root.String(),
		Kinds:   make(map[string]int),
		Batches: cond.Batches(),
	}
	for _, rec := range env.Records {
		kind := rec.Kind.String()
		report.Kinds[kind]++
		report.Records = append(report.Records, recordInfo{
			ID:        rec.ID.String(),
			Kind:      kind,
			Deps:      idStrings(g[rec.ID]),
			Component: cond.Of[rec.ID],
		})
	}
	for i, comp := range cond.Components {
		report.Components = append(report.Components, componentInfo{
			Index:   i,
			Members: idStrings(comp),
			Cyclic:  graph.IsCyclic(g, comp),
		})
	}
	return report, nil
}

func idStrings(ids []defs.ObjectID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func renderReport(w io.Writer, r *inspectReport, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		renderReportText(w, r)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or yaml)", format)
	}
}

func renderReportText(w io.Writer, r *inspectReport) {
	head := color.New(color.Bold)
	cyc := color.New(color.FgYellow)

	head.Fprintf(w, "envelope schema %d, root %s", r.Schema, r.Root)
	if r.Session != "" {
		fmt.Fprintf(w, " (session %s)", r.Session)
	}
	fmt.Fprintln(w)

	kinds := make([]string, 0, len(r.Kinds))
	for k := range r.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, r.Kinds[k])
	}
	fmt.Fprintf(w, "%d records: %s\n\n", len(r.Records), strings.Join(parts, " "))

	head.Fprintln(w, "records")
	for _, rec := range r.Records {
		fmt.Fprintf(w, "  %-6s %-22s c%-4d", rec.ID, rec.Kind, rec.Component)
		if len(rec.Deps) > 0 {
			fmt.Fprintf(w, " -> %s", strings.Join(rec.Deps, " "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	head.Fprintln(w, "rebuild order")
	for i, batch := range r.Batches {
		items := make([]string, len(batch))
		for j, c := range batch {
			comp := r.Components[c]
			text := fmt.Sprintf("c%d", c)
			if comp.Cyclic {
				text = cyc.Sprintf("c%d{%s}", c, strings.Join(comp.Members, " "))
			}
			items[j] = text
		}
		fmt.Fprintf(w, "  %d: %s\n", i, strings.Join(items, " "))
	}
}
