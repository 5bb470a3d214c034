// Package distribute applies resolved rule entries to characters.
//
// A pass walks the categories in a fixed order. For each category it
// evaluates the entries against the character snapshot, then applies the
// matches with the category's strategy: set-like union, single-slot
// override, positional insert, or batched container grant.
package distribute

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/levelcap"
	"formdist/internal/lookup"
	"formdist/internal/metrics"
	"formdist/internal/npc"
)

// LevelCapCache is the per-character memory consulted by leveled passes.
type LevelCapCache interface {
	HasHitLevelCap(in levelcap.Input) bool
	SetHitLevelCap(in levelcap.Input)
	IsRejected(in levelcap.Input, category lookup.Category, index uint32) bool
	Reject(in levelcap.Input, category lookup.Category, index uint32)
	Forget(id form.ID)
}

var _ LevelCapCache = (*levelcap.Cache)(nil)

type Options struct {
	// OnlyLeveled restricts the pass to entries with a level clause. Used
	// when the player level changes.
	OnlyLeveled bool
	PlayerLevel uint16
}

type Config struct {
	Roller  filter.Roller
	Cache   LevelCapCache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Engine struct {
	tables  *lookup.Tables
	roller  filter.Roller
	cache   LevelCapCache
	logger  *zap.Logger
	metrics *metrics.Metrics
	guard   *guard
}

// New builds an engine over finalized tables. Missing config fields get a
// crypto-seeded roller, a fresh level-cap cache and a no-op logger.
func New(tables *lookup.Tables, cfg Config) (*Engine, error) {
	if tables == nil {
		return nil, fmt.Errorf("distribute: nil tables")
	}
	roller := cfg.Roller
	if roller == nil {
		r, err := filter.NewRand()
		if err != nil {
			return nil, err
		}
		roller = r
	}
	cache := cfg.Cache
	if cache == nil {
		cache = levelcap.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tables:  tables,
		roller:  roller,
		cache:   cache,
		logger:  logger,
		metrics: cfg.Metrics,
		guard:   newGuard(),
	}, nil
}

func (e *Engine) Tables() *lookup.Tables {
	return e.tables
}

// Forget drops the applied-entry record and level-cap memory of a
// character, so the next pass treats it as new.
func (e *Engine) Forget(id form.ID) {
	e.guard.forget(id)
	e.cache.Forget(id)
}

// Distribute runs one pass for a character. It never fails: entry-scoped
// problems are reported as declined outcomes.
func (e *Engine) Distribute(snap *npc.Snapshot, target Target, opts Options) *Result {
	start := time.Now()
	in := levelcap.Input{ActorID: snap.ID(), PlayerLevel: opts.PlayerLevel, OnlyLeveled: opts.OnlyLeveled}
	result := &Result{Actor: snap.ID(), OnlyLeveled: opts.OnlyLeveled}

	if opts.OnlyLeveled && e.cache.HasHitLevelCap(in) {
		result.LevelCapped = true
		e.logger.Debug("skipping capped character", zap.Stringer("actor", snap.ID()), zap.Uint16("player_level", opts.PlayerLevel))
		return result
	}

	p := &pass{engine: e, snap: snap, target: target, in: in, result: result}
	for _, c := range lookup.Order {
		p.run(c)
	}

	if capper, ok := target.(LevelCapper); ok && capper.HasReachedLevelCap() {
		e.cache.SetHitLevelCap(in)
	}

	e.metrics.ObservePass(time.Since(start))
	e.logger.Debug("distributed",
		zap.String("actor", snap.String()),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("applied", result.Applied()),
		zap.Bool("only_leveled", opts.OnlyLeveled),
	)
	return result
}

// DistributeDeath grants death items. It runs independently of regular
// passes, typically when the character dies.
func (e *Engine) DistributeDeath(snap *npc.Snapshot, target Target) *Result {
	in := levelcap.Input{ActorID: snap.ID()}
	result := &Result{Actor: snap.ID()}
	p := &pass{engine: e, snap: snap, target: target, in: in, result: result}
	p.run(lookup.DeathItem)
	return result
}

type guardKey struct {
	actor    form.ID
	category lookup.Category
	index    uint32
}

type categoryKey struct {
	actor    form.ID
	category lookup.Category
}

// guard records applied entries per character.
type guard struct {
	mu         sync.Mutex
	applied    map[guardKey]struct{}
	categories map[categoryKey]struct{}
}

func newGuard() *guard {
	return &guard{
		applied:    make(map[guardKey]struct{}),
		categories: make(map[categoryKey]struct{}),
	}
}

func (g *guard) has(actor form.ID, c lookup.Category, index uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.applied[guardKey{actor: actor, category: c, index: index}]
	return ok
}

func (g *guard) hasCategory(actor form.ID, c lookup.Category) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.categories[categoryKey{actor: actor, category: c}]
	return ok
}

func (g *guard) mark(actor form.ID, c lookup.Category, indices ...uint32) {
	if len(indices) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, index := range indices {
		g.applied[guardKey{actor: actor, category: c, index: index}] = struct{}{}
	}
	g.categories[categoryKey{actor: actor, category: c}] = struct{}{}
}

func (g *guard) forget(actor form.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.applied {
		if key.actor == actor {
			delete(g.applied, key)
		}
	}
	for key := range g.categories {
		if key.actor == actor {
			delete(g.categories, key)
		}
	}
}
