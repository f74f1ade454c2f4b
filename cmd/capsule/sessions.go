package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"capsule/internal/registry/sqlstore"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List capture sessions recorded in a sqlite store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cmd.Flags().GetString("db")
		if err != nil {
			return err
		}
		if path == "" {
			path = cli.cfg.Store.Path
		}
		if path == "" {
			return errors.New("no sqlite store configured; pass --db or set [store] path")
		}
		db, err := sqlstore.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()

		ids, err := db.Sessions()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range ids {
			st, err := db.Session(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %d definitions\n", id, st.Len())
		}
		if len(ids) == 0 && !cli.quiet {
			fmt.Fprintln(out, "no sessions")
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().String("db", "", "sqlite database path (default: [store] path)")
}
