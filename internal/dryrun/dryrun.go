// Package dryrun distributes rules over a loaded world and turns the
// outcomes into catalog run reports.
package dryrun

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formdist/internal/distribute"
	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/metrics"
	"formdist/internal/npc"
	"formdist/internal/store"
	"formdist/internal/world"
)

type Options struct {
	PlayerLevel uint16
	OnlyLeveled bool
	// Death also grants death items, as if every character had died.
	Death bool
	// Roller replaces the crypto-seeded chance source.
	Roller filter.Roller
}

type Runner struct {
	world   *world.World
	tables  *lookup.Tables
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(w *world.World, tables *lookup.Tables, logger *zap.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{world: w, tables: tables, logger: logger, metrics: m}
}

func (r *Runner) World() *world.World    { return r.world }
func (r *Runner) Tables() *lookup.Tables { return r.tables }

// Run distributes to every character of the world in place and reports
// each outcome as a grant.
func (r *Runner) Run(opts Options) (store.Run, error) {
	engine, err := r.engine(opts)
	if err != nil {
		return store.Run{}, err
	}
	if opts.PlayerLevel > 0 {
		r.world.SetPlayerLevel(opts.PlayerLevel)
	}

	run := store.Run{
		ID:          uuid.New(),
		StartedAt:   time.Now().UTC(),
		PlayerLevel: r.world.PlayerLevel(),
		OnlyLeveled: opts.OnlyLeveled,
		Rules:       r.tables.TotalRuleCount(),
	}
	distOpts := distribute.Options{OnlyLeveled: opts.OnlyLeveled, PlayerLevel: run.PlayerLevel}

	for _, actor := range r.world.Actors() {
		result := engine.Distribute(npc.New(actor), actor, distOpts)
		grants := Grants(run.ID, actor, result)
		if opts.Death {
			death := engine.DistributeDeath(npc.New(actor), actor)
			grants = append(grants, Grants(run.ID, actor, death)...)
			result.Outcomes = append(result.Outcomes, death.Outcomes...)
		}
		run.Actors++
		run.Applied += result.Applied()
		run.Grants = append(run.Grants, grants...)
	}

	r.logger.Info("distribution finished",
		zap.String("run_id", run.ID.String()),
		zap.Int("actors", run.Actors),
		zap.Int("applied", run.Applied),
		zap.Uint16("player_level", run.PlayerLevel),
	)
	return run, nil
}

// Preview distributes to a copy of one character. The world is left as
// it was.
func (r *Runner) Preview(id form.Identifier, opts Options) (*world.Actor, *distribute.Result, error) {
	actor, ok := r.world.FindActor(id)
	if !ok {
		return nil, nil, fmt.Errorf("actor not found: %s", id)
	}
	engine, err := r.engine(opts)
	if err != nil {
		return nil, nil, err
	}

	clone := actor.Clone()
	level := opts.PlayerLevel
	if level == 0 {
		level = r.world.PlayerLevel()
	}
	result := engine.Distribute(npc.New(clone), clone, distribute.Options{OnlyLeveled: opts.OnlyLeveled, PlayerLevel: level})
	if opts.Death {
		death := engine.DistributeDeath(npc.New(clone), clone)
		result.Outcomes = append(result.Outcomes, death.Outcomes...)
	}
	return clone, result, nil
}

// engine builds a fresh engine so applied-entry memory never leaks
// between runs.
func (r *Runner) engine(opts Options) (*distribute.Engine, error) {
	return distribute.New(r.tables, distribute.Config{
		Roller:  opts.Roller,
		Logger:  r.logger,
		Metrics: r.metrics,
	})
}

// Grants converts the outcomes of one pass.
func Grants(runID uuid.UUID, actor *world.Actor, result *distribute.Result) []store.Grant {
	grants := make([]store.Grant, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		grants = append(grants, store.Grant{
			RunID:    runID,
			Actor:    actor.EditorID(),
			ActorID:  actor.ID().String(),
			Category: o.Category.String(),
			Form:     formName(o.Form),
			Count:    o.Count,
			Status:   o.Status.String(),
			Reason:   o.Reason,
			Path:     o.Path,
		})
	}
	return grants
}

func formName(f *form.Form) string {
	if f == nil {
		return ""
	}
	if f.EditorID != "" {
		return f.EditorID
	}
	return f.ID.String()
}
