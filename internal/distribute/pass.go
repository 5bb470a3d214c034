package distribute

import (
	"math"

	"go.uber.org/zap"

	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/levelcap"
	"formdist/internal/lookup"
	"formdist/internal/npc"
)

type pass struct {
	engine *Engine
	snap   *npc.Snapshot
	target Target
	in     levelcap.Input
	result *Result
}

func (p *pass) run(c lookup.Category) {
	collection := p.engine.tables.Get(c)
	if collection == nil || collection.Len() == 0 {
		return
	}
	if c.Overridable() && p.engine.guard.hasCategory(p.snap.ID(), c) {
		p.result.Guarded++
		return
	}

	matched := p.match(c, collection.Entries(p.in.OnlyLeveled))
	if len(matched) == 0 {
		return
	}

	before := len(p.result.Outcomes)
	switch c {
	case lookup.Keyword, lookup.Faction, lookup.Spell, lookup.LeveledSpell, lookup.Perk, lookup.Shout:
		p.applySet(c, matched)
	case lookup.Item, lookup.DeathItem:
		p.applyItems(c, matched)
	case lookup.Outfit:
		p.applyOutfit(matched)
	case lookup.SleepOutfit:
		p.applySlot(c, matched, p.target.SleepOutfit, p.target.SetSleepOutfit)
	case lookup.Skin:
		p.applySlot(c, matched, p.target.Skin, p.target.SetSkin)
	case lookup.Package:
		p.applyPackages(matched)
	}

	applied := 0
	for _, o := range p.result.Outcomes[before:] {
		if o.Status == Applied {
			applied++
		}
	}
	p.engine.metrics.ObserveGrants(c.String(), applied)
}

// match evaluates entries in order and returns those that pass, skipping
// entries already applied to this character and entries whose chance roll
// already failed at the current player level.
func (p *pass) match(c lookup.Category, entries []lookup.Entry) []*lookup.Entry {
	var matched []*lookup.Entry
	for i := range entries {
		entry := &entries[i]
		if p.engine.guard.has(p.snap.ID(), c, entry.Index) {
			p.result.Guarded++
			continue
		}
		leveled := entry.Filters.HasLevelFilters()
		if leveled && p.engine.cache.IsRejected(p.in, c, entry.Index) {
			p.result.FailedRoll++
			continue
		}

		p.result.Evaluated++
		result, clause := entry.Filters.Evaluate(p.snap, p.engine.roller)
		p.engine.metrics.ObserveEvaluation(c.String(), result.String())

		switch result {
		case filter.Pass:
			matched = append(matched, entry)
		case filter.FailChance:
			p.result.FailedRoll++
			if leveled {
				p.engine.cache.Reject(p.in, c, entry.Index)
			}
		default:
			p.result.Failed++
			if ce := p.engine.logger.Check(zap.DebugLevel, "filter failed"); ce != nil {
				ce.Write(
					zap.Stringer("category", c),
					zap.String("path", entry.Path),
					zap.Stringer("form", entry.Form),
					zap.String("actor", p.snap.String()),
					zap.String("reason", string(clause)),
				)
			}
		}
	}
	return matched
}

func (p *pass) applied(c lookup.Category, entry *lookup.Entry, count int32) {
	p.result.add(Outcome{Category: c, Index: entry.Index, Form: entry.Form, Count: count, Status: Applied, Path: entry.Path})
}

func (p *pass) declined(c lookup.Category, entry *lookup.Entry, reason string) {
	p.result.add(Outcome{Category: c, Index: entry.Index, Form: entry.Form, Count: entry.IdxOrCount, Status: Declined, Reason: reason, Path: entry.Path})
	p.engine.logger.Debug("declined",
		zap.Stringer("category", c),
		zap.String("path", entry.Path),
		zap.Stringer("form", entry.Form),
		zap.String("actor", p.snap.String()),
		zap.String("reason", reason),
	)
}

// applySet unions every match the character does not already have. Added
// keywords are visible to later categories of the same pass.
func (p *pass) applySet(c lookup.Category, matched []*lookup.Entry) {
	var forms []*form.Form
	var indices []uint32
	for _, entry := range matched {
		if p.snap.HasForm(entry.Form) || form.List(forms).Contains(entry.Form) {
			p.declined(c, entry, ReasonAlreadyPresent)
			continue
		}
		forms = append(forms, entry.Form)
		indices = append(indices, entry.Index)
		p.applied(c, entry, 1)
	}
	if len(forms) == 0 {
		return
	}

	switch c {
	case lookup.Keyword:
		p.target.AddKeywords(forms)
		names := make([]string, 0, len(forms))
		for _, f := range forms {
			names = append(names, f.EditorID)
		}
		p.snap = p.snap.WithKeywords(names...)
	case lookup.Faction:
		p.target.AddFactions(forms)
	case lookup.Spell:
		p.target.AddSpells(forms)
	case lookup.LeveledSpell:
		p.target.AddLeveledSpells(forms)
	case lookup.Perk:
		p.target.AddPerks(forms)
	case lookup.Shout:
		p.target.AddShouts(forms)
	}
	p.engine.guard.mark(p.snap.ID(), c, indices...)
}

// applyItems sums counts per form and grants them in one container
// operation, then initializes leveled lists if any was granted.
func (p *pass) applyItems(c lookup.Category, matched []*lookup.Entry) {
	var items []ItemCount
	var accepted []*lookup.Entry
	hasLeveled := false
	for _, entry := range matched {
		if entry.IdxOrCount <= 0 {
			p.declined(c, entry, ReasonInvalidCount)
			continue
		}
		accepted = append(accepted, entry)
		found := false
		for i := range items {
			if items[i].Form.SameAs(entry.Form) {
				items[i].Count = addCount(items[i].Count, entry.IdxOrCount)
				found = true
				break
			}
		}
		if !found {
			items = append(items, ItemCount{Form: entry.Form, Count: entry.IdxOrCount})
		}
		if entry.Form.Is(form.TypeLeveledItem) {
			hasLeveled = true
		}
	}
	if len(items) == 0 {
		return
	}

	if !p.target.AddItems(items) {
		for _, entry := range accepted {
			p.declined(c, entry, ReasonContainer)
		}
		return
	}
	if hasLeveled {
		p.target.InitLeveledItems()
	}
	indices := make([]uint32, 0, len(accepted))
	for _, entry := range accepted {
		p.applied(c, entry, entry.IdxOrCount)
		indices = append(indices, entry.Index)
	}
	p.engine.guard.mark(p.snap.ID(), c, indices...)
}

// applyOutfit sets the first compatible outfit. A character receives at
// most one distributed outfit.
func (p *pass) applyOutfit(matched []*lookup.Entry) {
	c := lookup.Outfit
	for i, entry := range matched {
		switch {
		case p.target.IsProcessed():
			p.declined(c, entry, ReasonAlreadyProcessed)
			continue
		case p.target.DefaultOutfit().SameAs(entry.Form):
			p.declined(c, entry, ReasonAlreadyDefault)
			continue
		case !outfitFits(entry.Form, p.snap.Race()):
			p.declined(c, entry, ReasonIncompatibleRace)
			continue
		}

		old := p.target.DefaultOutfit()
		wasWorn := old != nil && p.target.WornOutfit().SameAs(old)
		p.target.SetDefaultOutfit(entry.Form)
		p.target.MarkProcessed()
		if wasWorn {
			p.target.EquipOutfit(entry.Form)
		}
		p.applied(c, entry, 1)
		p.engine.guard.mark(p.snap.ID(), c, entry.Index)
		for _, rest := range matched[i+1:] {
			p.declined(c, rest, ReasonOverridden)
		}
		return
	}
}

// addCount sums two positive item counts, saturating at the int32 limit.
func addCount(a, b int32) int32 {
	if a > math.MaxInt32-b {
		return math.MaxInt32
	}
	return a + b
}

func outfitFits(outfit *form.Form, race *form.Form) bool {
	for _, item := range outfit.Members {
		if item.Is(form.TypeArmor) && !item.AcceptsRace(race) {
			return false
		}
	}
	return true
}

// applySlot sets a single-slot field to the first match not already in
// effect.
func (p *pass) applySlot(c lookup.Category, matched []*lookup.Entry, current func() *form.Form, set func(*form.Form)) {
	for i, entry := range matched {
		if current().SameAs(entry.Form) {
			p.declined(c, entry, ReasonAlreadyDefault)
			continue
		}
		set(entry.Form)
		p.applied(c, entry, 1)
		p.engine.guard.mark(p.snap.ID(), c, entry.Index)
		for _, rest := range matched[i+1:] {
			p.declined(c, rest, ReasonOverridden)
		}
		return
	}
}

// applyPackages inserts packages at their position and assigns form lists
// to the pack list slot named by their index. Entries apply in order, so
// the last entry targeting a slot wins.
func (p *pass) applyPackages(matched []*lookup.Entry) {
	c := lookup.Package
	var indices []uint32
	for _, entry := range matched {
		pos := entry.IdxOrCount
		switch {
		case entry.Form.Is(form.TypePackage):
			if p.target.Packages().Contains(entry.Form) {
				p.declined(c, entry, ReasonAlreadyPresent)
				continue
			}
			if pos < 0 {
				pos = 0
			}
			p.target.InsertPackage(entry.Form, int(pos))
		case entry.Form.Is(form.TypeFormList):
			if pos < 0 || pos >= int32(PackSlotCount) {
				p.declined(c, entry, ReasonInvalidSlot)
				continue
			}
			p.target.SetPackList(PackSlot(pos), entry.Form)
		default:
			p.declined(c, entry, ReasonInvalidTarget)
			continue
		}
		p.applied(c, entry, pos)
		indices = append(indices, entry.Index)
	}
	p.engine.guard.mark(p.snap.ID(), c, indices...)
}
