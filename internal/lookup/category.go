package lookup

import (
	"strings"

	"formdist/internal/form"
)

type Category uint8

const (
	Keyword Category = iota
	Faction
	Spell
	LeveledSpell
	Perk
	Shout
	Item
	Outfit
	SleepOutfit
	Package
	Skin
	DeathItem

	categoryCount
)

// Order is the fixed distribution order of a regular pass. Death items are
// distributed separately.
var Order = []Category{Keyword, Faction, Spell, LeveledSpell, Perk, Shout, Item, Outfit, SleepOutfit, Package, Skin}

// All lists every category, including death items.
var All = append(append([]Category(nil), Order...), DeathItem)

type categoryInfo struct {
	name        string
	accepts     func(form.Type) bool
	overridable bool
	canCreate   bool
}

func only(types ...form.Type) func(form.Type) bool {
	return func(t form.Type) bool {
		for _, allowed := range types {
			if t == allowed {
				return true
			}
		}
		return false
	}
}

var categories = [categoryCount]categoryInfo{
	Keyword:      {name: "keyword", accepts: only(form.TypeKeyword), canCreate: true},
	Faction:      {name: "faction", accepts: only(form.TypeFaction)},
	Spell:        {name: "spell", accepts: only(form.TypeSpell)},
	LeveledSpell: {name: "leveled_spell", accepts: only(form.TypeLeveledSpell)},
	Perk:         {name: "perk", accepts: only(form.TypePerk)},
	Shout:        {name: "shout", accepts: only(form.TypeShout)},
	Item:         {name: "item", accepts: form.Type.IsBoundObject},
	Outfit:       {name: "outfit", accepts: only(form.TypeOutfit), overridable: true},
	SleepOutfit:  {name: "sleep_outfit", accepts: only(form.TypeOutfit), overridable: true},
	Package:      {name: "package", accepts: only(form.TypePackage, form.TypeFormList)},
	Skin:         {name: "skin", accepts: only(form.TypeArmor), overridable: true},
	DeathItem:    {name: "death_item", accepts: form.Type.IsBoundObject},
}

// filterTypes are the form types a form filter member may name.
var filterTypes = only(
	form.TypeKeyword,
	form.TypeFaction,
	form.TypeRace,
	form.TypeClass,
	form.TypeCombatStyle,
	form.TypeVoiceType,
	form.TypeOutfit,
	form.TypeNPC,
	form.TypeFormList,
	form.TypeSpell,
	form.TypePerk,
	form.TypeArmor,
	form.TypeLocation,
)

func (c Category) String() string {
	if c >= categoryCount {
		return "unknown"
	}
	return categories[c].name
}

// Accepts reports whether a form of type t may be the target of a rule in
// this category.
func (c Category) Accepts(t form.Type) bool {
	return c < categoryCount && categories[c].accepts(t)
}

// Overridable categories fill a single slot; the winning entry comes from
// the last rule file in path order.
func (c Category) Overridable() bool {
	return c < categoryCount && categories[c].overridable
}

// CanCreate reports whether an unknown editor ID target is created instead
// of rejected.
func (c Category) CanCreate() bool {
	return c < categoryCount && categories[c].canCreate
}

// ParseCategory accepts the snake_case name, ignoring case. "-" is read as
// "_" so "sleep-outfit" works.
func ParseCategory(name string) (Category, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for c := Category(0); c < categoryCount; c++ {
		if categories[c].name == key {
			return c, true
		}
	}
	return 0, false
}
