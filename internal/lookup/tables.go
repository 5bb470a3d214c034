// Package lookup resolves raw rule records into per-category collections of
// entries bound to live registry forms.
package lookup

import (
	"go.uber.org/zap"

	"formdist/internal/form"
	"formdist/internal/metrics"
)

// Tables holds one finalized collection per category.
type Tables struct {
	collections [categoryCount]*Collection
}

// Run resolves and finalizes every category. Records for a category missing
// from records produce an empty collection.
func Run(registry form.Registry, remapper form.Remapper, records map[Category][]RawRecord, logger *zap.Logger, m *metrics.Metrics) (*Tables, []Diagnostic) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := NewResolver(registry, remapper, logger)
	tables := &Tables{}
	var diags []Diagnostic

	for _, c := range All {
		collection := NewCollection(c)
		diags = append(diags, collection.Lookup(resolver, records[c], m)...)
		collection.Finalize()
		tables.collections[c] = collection
		m.SetRulesLoaded(c.String(), collection.Len())
		if collection.Len() > 0 {
			logger.Info("registered rules",
				zap.Stringer("category", c),
				zap.Int("entries", collection.Len()),
				zap.Int("leveled", collection.LeveledLen()),
				zap.Int("records", len(records[c])),
			)
		}
	}

	logger.Info("lookup finished",
		zap.Int("rules", tables.TotalRuleCount()),
		zap.Int("leveled_rules", tables.TotalLeveledRuleCount()),
		zap.Int("diagnostics", len(diags)),
	)
	return tables, diags
}

func (t *Tables) Get(c Category) *Collection {
	if c >= categoryCount {
		return nil
	}
	return t.collections[c]
}

func (t *Tables) TotalRuleCount() int {
	total := 0
	for _, c := range t.collections {
		if c != nil {
			total += c.Len()
		}
	}
	return total
}

func (t *Tables) TotalLeveledRuleCount() int {
	total := 0
	for _, c := range t.collections {
		if c != nil {
			total += c.LeveledLen()
		}
	}
	return total
}
