package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the catalog from the CLI",
	}
	cmd.AddCommand(queryActorsCmd())
	cmd.AddCommand(queryActorCmd())
	cmd.AddCommand(queryFormsCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(queryRunsCmd())
	cmd.AddCommand(queryGrantsCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}
