package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"formdist/internal/form"
)

func querySearchCmd() *cobra.Command {
	var formType string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search forms by editor id and name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(cmd, strings.Join(args, " "), formType)
		},
	}
	cmd.Flags().StringVar(&formType, "type", "", "Form type to filter")
	return cmd
}

func runQuerySearch(cmd *cobra.Command, query, formType string) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	results, err := db.Search(ctx, query, formType)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "No matches found.")
		return nil
	}

	for _, result := range results {
		fmt.Fprintf(os.Stdout, "%s~%s %s (%s) score=%.2f\n", form.ID(result.LocalID), result.Plugin, result.EditorID, result.FormType, result.Score)
	}
	return nil
}
