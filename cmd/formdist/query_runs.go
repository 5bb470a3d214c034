package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func queryRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded distribution runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryRuns(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}

func runQueryRuns(cmd *cobra.Command, limit int) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs recorded.")
		return nil
	}

	for _, run := range runs {
		mode := "full"
		if run.OnlyLeveled {
			mode = "leveled"
		}
		fmt.Fprintf(os.Stdout, "%s %s level=%d %s actors=%d applied=%d\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.PlayerLevel, mode, run.Actors, run.Applied)
	}
	return nil
}

func queryGrantsCmd() *cobra.Command {
	var runID string
	var actor string
	cmd := &cobra.Command{
		Use:   "grants",
		Short: "List the grants of a run (default: the latest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryGrants(cmd, runID, actor)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor editor id to filter")
	return cmd
}

func runQueryGrants(cmd *cobra.Command, runID, actor string) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	var id uuid.UUID
	if runID != "" {
		id, err = uuid.Parse(runID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	} else {
		runs, err := db.ListRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No runs recorded.")
			return nil
		}
		id = runs[0].ID
	}

	grants, err := db.ListGrants(ctx, id, actor)
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		fmt.Fprintln(os.Stdout, "No grants found.")
		return nil
	}

	for _, g := range grants {
		line := fmt.Sprintf("%s %s %s x%d %s", g.Actor, g.Category, g.Form, g.Count, g.Status)
		if g.Reason != "" {
			line += ": " + g.Reason
		}
		fmt.Fprintf(os.Stdout, "%s (%s)\n", line, g.Path)
	}
	return nil
}
