package lookup

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/metrics"
)

var ErrUnresolvedFilter = errors.New("filter cannot be resolved")

// Collection holds the resolved entries of one category.
type Collection struct {
	category  Category
	entries   []Entry
	leveled   []Entry
	finalized bool
}

func NewCollection(c Category) *Collection {
	return &Collection{category: c}
}

func (c *Collection) Category() Category {
	return c.category
}

// Lookup resolves raws in order, appending every record that resolves and
// reporting the rest. Indices are dense and follow resolution order.
func (c *Collection) Lookup(r *Resolver, raws []RawRecord, m *metrics.Metrics) []Diagnostic {
	if c.finalized {
		panic(fmt.Sprintf("lookup: %s collection already finalized", c.category))
	}

	var diags []Diagnostic
	for _, raw := range raws {
		entry, entryDiags, err := c.resolve(r, raw)
		diags = append(diags, entryDiags...)
		if err != nil {
			diag := Diagnostic{Category: c.category, Path: raw.Path, Target: raw.Target.String(), Err: err}
			diags = append(diags, diag)
			r.logger.Error("skipping rule",
				zap.Stringer("category", c.category),
				zap.String("path", raw.Path),
				zap.String("form", raw.Target.String()),
				zap.Error(err),
			)
			m.ObserveLookup(c.category.String(), "error")
			continue
		}
		entry.Index = uint32(len(c.entries))
		c.entries = append(c.entries, entry)
		m.ObserveLookup(c.category.String(), "ok")
	}
	return diags
}

func (c *Collection) resolve(r *Resolver, raw RawRecord) (Entry, []Diagnostic, error) {
	if raw.Target.IsZero() {
		return Entry{}, nil, ErrEmptyTarget
	}
	target, err := r.Target(c.category, raw.Target)
	if err != nil {
		return Entry{}, nil, err
	}

	data := filter.Data{
		Strings: raw.Strings,
		Level:   raw.Level,
		Chance:  raw.Chance,
		Traits: filter.Traits{
			Sex:        raw.Traits.Sex,
			Unique:     raw.Traits.Unique,
			Summonable: raw.Traits.Summonable,
			Child:      raw.Traits.Child,
			Leveled:    raw.Traits.Leveled,
			Teammate:   raw.Traits.Teammate,
		},
	}
	if !raw.Traits.Race.IsZero() {
		race, err := r.Race(raw.Traits.Race)
		if err != nil {
			return Entry{}, nil, fmt.Errorf("%w: race %s: %w", ErrUnresolvedFilter, raw.Traits.Race, err)
		}
		data.Traits.Race = race
	}

	var diags []Diagnostic
	warn := func(id form.Identifier, err error) {
		diags = append(diags, Diagnostic{Category: c.category, Path: raw.Path, Target: id.String(), Err: err, Warning: true})
		r.logger.Warn("skipping filter",
			zap.Stringer("category", c.category),
			zap.String("path", raw.Path),
			zap.String("form", id.String()),
			zap.Error(err),
		)
	}

	if data.Forms.All, err = c.resolveMembers(r, raw.Forms.All, true, warn); err != nil {
		return Entry{}, diags, err
	}
	if data.Forms.Not, err = c.resolveMembers(r, raw.Forms.Not, false, warn); err != nil {
		return Entry{}, diags, err
	}
	if data.Forms.Match, err = c.resolveMembers(r, raw.Forms.Match, false, warn); err != nil {
		return Entry{}, diags, err
	}

	return Entry{
		Form:       target,
		IdxOrCount: raw.IdxOrCount,
		Filters:    data,
		Path:       raw.Path,
	}, diags, nil
}

// resolveMembers resolves filter operands. With all set every operand must
// resolve; otherwise one resolved operand is enough to keep the entry.
func (c *Collection) resolveMembers(r *Resolver, ids []form.Identifier, all bool, warn func(form.Identifier, error)) ([]filter.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	members := make([]filter.Member, 0, len(ids))
	for _, id := range ids {
		member, err := r.Member(id)
		if err != nil {
			if all {
				return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedFilter, id, err)
			}
			warn(id, err)
			continue
		}
		members = append(members, member)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: no operand of %s resolved", ErrUnresolvedFilter, joinIDs(ids))
	}
	return members, nil
}

func joinIDs(ids []form.Identifier) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// Finalize orders override categories by provenance, last rule file first,
// and builds the leveled subset. The collection is read-only afterwards and
// a second call panics.
func (c *Collection) Finalize() {
	if c.finalized {
		panic(fmt.Sprintf("lookup: %s collection finalized twice", c.category))
	}
	if c.category.Overridable() {
		slices.SortStableFunc(c.entries, func(a, b Entry) int {
			return strings.Compare(b.Path, a.Path)
		})
	}
	for _, entry := range c.entries {
		if entry.Filters.HasLevelFilters() {
			c.leveled = append(c.leveled, entry)
		}
	}
	c.finalized = true
}

// Entries returns the finalized entries, or only those with a level clause.
func (c *Collection) Entries(onlyLeveled bool) []Entry {
	if !c.finalized {
		panic(fmt.Sprintf("lookup: %s collection read before Finalize", c.category))
	}
	if onlyLeveled {
		return c.leveled
	}
	return c.entries
}

func (c *Collection) Len() int {
	return len(c.entries)
}

func (c *Collection) LeveledLen() int {
	return len(c.leveled)
}
