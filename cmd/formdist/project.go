package main

import (
	"context"

	"go.uber.org/zap"

	"formdist/internal/dryrun"
	"formdist/internal/ingest"
	"formdist/internal/lookup"
	"formdist/internal/merge"
	"formdist/internal/metrics"
	"formdist/internal/ruleset"
	"formdist/internal/store"
	"formdist/internal/world"
)

// loadRules rebuilds the world from the catalog and reads the rule files.
func loadRules(ctx context.Context, db store.Store) (*world.World, *merge.Map, *ruleset.Result, error) {
	w, err := ingest.LoadWorld(ctx, project, db)
	if err != nil {
		return nil, nil, nil, err
	}
	remapper, err := merge.LoadFiles(project.MergeMaps)
	if err != nil {
		return nil, nil, nil, err
	}
	rules, err := ruleset.Load(project.Rules.Paths, project.Exclude)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, e := range rules.Errors {
		logger.Error("skipping rule file", zap.Error(e))
	}
	logger.Info("read rule files",
		zap.Int("files", len(rules.Files)),
		zap.Int("records", rules.Count()),
		zap.Int("remapped_plugins", remapper.Len()),
	)
	return w, remapper, rules, nil
}

func loadRunner(ctx context.Context, db store.Store, m *metrics.Metrics) (*dryrun.Runner, error) {
	w, remapper, rules, err := loadRules(ctx, db)
	if err != nil {
		return nil, err
	}
	tables, _ := lookup.Run(w, remapper, rules.Records, logger, m)
	return dryrun.New(w, tables, logger, m), nil
}
