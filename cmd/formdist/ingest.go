package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formdist/internal/ingest"
)

var ingestFull bool

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Synchronise the catalog with the world files",
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestFull, "full", false, "Force full re-ingestion (ignore incremental hashes)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := ingest.Run(ctx, project, db, logger, ingest.Options{Full: ingestFull})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Ingestion complete.")
	fmt.Fprintf(os.Stdout, "  Documents upserted: %d\n", result.DocumentsUpserted)
	fmt.Fprintf(os.Stdout, "  Forms indexed:      %d\n", result.FormsIndexed)
	fmt.Fprintf(os.Stdout, "  Documents removed:  %d\n", result.DocumentsRemoved)
	fmt.Fprintf(os.Stdout, "  Files skipped:      %d\n", result.FilesSkipped)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("ingestion completed with errors")
	}

	return nil
}
