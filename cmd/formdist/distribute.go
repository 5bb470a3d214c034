package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"formdist/internal/dryrun"
)

func distributeCmd() *cobra.Command {
	var opts dryrun.Options
	var noSave bool
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Distribute the rules to every actor and record the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("player-level") {
				opts.PlayerLevel = project.PlayerLevel
			}
			return runDistribute(cmd, opts, !noSave)
		},
	}
	cmd.Flags().Uint16Var(&opts.PlayerLevel, "player-level", 1, "Player level to evaluate at (default from the project file)")
	cmd.Flags().BoolVar(&opts.OnlyLeveled, "only-leveled", false, "Run a level-up pass with leveled rules only")
	cmd.Flags().BoolVar(&opts.Death, "death", false, "Also grant death items")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the run in the catalog")
	return cmd
}

func runDistribute(cmd *cobra.Command, opts dryrun.Options, save bool) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runner, err := loadRunner(ctx, db, nil)
	if err != nil {
		return err
	}

	run, err := runner.Run(opts)
	if err != nil {
		return err
	}
	if save {
		if err := db.SaveRun(ctx, run); err != nil {
			return err
		}
		logger.Info("saved run", zap.String("run_id", run.ID.String()), zap.Int("grants", len(run.Grants)))
	}

	perCategory := make(map[string]int)
	declined := 0
	for _, g := range run.Grants {
		if g.Status != "applied" {
			declined++
			continue
		}
		perCategory[g.Category]++
	}
	categories := make([]string, 0, len(perCategory))
	for category := range perCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	fmt.Fprintf(os.Stdout, "Run %s\n", run.ID)
	fmt.Fprintf(os.Stdout, "  Player level: %d\n", run.PlayerLevel)
	fmt.Fprintf(os.Stdout, "  Rules:        %d\n", run.Rules)
	fmt.Fprintf(os.Stdout, "  Actors:       %d\n", run.Actors)
	fmt.Fprintf(os.Stdout, "  Applied:      %d\n", run.Applied)
	fmt.Fprintf(os.Stdout, "  Declined:     %d\n", declined)
	for _, category := range categories {
		fmt.Fprintf(os.Stdout, "    %-12s %d\n", category, perCategory[category])
	}
	return nil
}
