package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func querySQLCmd() *cobra.Command {
	var rawArgs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a raw SQL query against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSQL(cmd, query, parseArgs(rawArgs))
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Positional query argument (repeatable)")
	return cmd
}

func runSQL(cmd *cobra.Command, query string, args []any) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	rows, err := db.RunSQL(ctx, query, args)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(payload))
	return nil
}

// parseArgs passes integers as numbers and everything else as text.
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, value := range raw {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			args = append(args, n)
			continue
		}
		args = append(args, value)
	}
	return args
}
