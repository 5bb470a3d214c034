package world

import (
	"math"
	"slices"

	"formdist/internal/distribute"
	"formdist/internal/form"
	"formdist/internal/npc"
)

// LevelMult scales a character's level with the player level.
type LevelMult struct {
	Mult float64
	Min  uint16
	Max  uint16
}

// Actor is a character record. It is both the filterable view a snapshot is
// built from and the target distribution mutates.
type Actor struct {
	world *World
	base  *form.Form

	templates  []*form.Form
	name       string
	race       *form.Form
	level      uint16
	levelMult  *LevelMult
	sex        npc.Sex
	unique     bool
	summonable bool
	child      bool
	teammate   bool

	class       *form.Form
	combatStyle *form.Form
	voiceType   *form.Form
	location    *form.Form

	keywords      form.List
	factions      form.List
	spells        form.List
	leveledSpells form.List
	perks         form.List
	shouts        form.List

	inventory    []distribute.ItemCount
	leveledInits int

	defaultOutfit *form.Form
	wornOutfit    *form.Form
	sleepOutfit   *form.Form
	skin          *form.Form
	packages      form.List
	packLists     [distribute.PackSlotCount]*form.Form
	processed     bool
}

var (
	_ npc.Character          = (*Actor)(nil)
	_ distribute.Target      = (*Actor)(nil)
	_ distribute.LevelCapper = (*Actor)(nil)
)

func (a *Actor) Form() *form.Form { return a.base }
func (a *Actor) ID() form.ID      { return a.base.ID }
func (a *Actor) EditorID() string { return a.base.EditorID }

// Identities walks the template chain depth first, starting with the
// character itself. Cycles are cut.
func (a *Actor) Identities() []npc.Identity {
	var ids []npc.Identity
	seen := make(map[form.ID]struct{})
	var walk func(f *form.Form)
	walk = func(f *form.Form) {
		if _, ok := seen[f.ID]; ok {
			return
		}
		seen[f.ID] = struct{}{}
		ids = append(ids, npc.Identity{ID: f.ID, EditorID: f.EditorID, File: f.File})
		if owner, ok := a.world.actorsByID[f.ID]; ok {
			for _, t := range owner.templates {
				walk(t)
			}
		}
	}
	walk(a.base)
	for _, t := range a.templates {
		walk(t)
	}
	return ids
}

func (a *Actor) Name() string       { return a.name }
func (a *Actor) Race() *form.Form   { return a.race }
func (a *Actor) Sex() npc.Sex       { return a.sex }
func (a *Actor) IsUnique() bool     { return a.unique }
func (a *Actor) IsSummonable() bool { return a.summonable }
func (a *Actor) IsChild() bool      { return a.child }
func (a *Actor) IsLeveled() bool    { return a.levelMult != nil }
func (a *Actor) IsTeammate() bool   { return a.teammate }

// Level is the fixed level, or for player-scaled characters the player
// level times the multiplier clamped to [Min, Max].
func (a *Actor) Level() uint16 {
	if a.levelMult == nil {
		return a.level
	}
	return a.levelMult.levelAt(a.world.PlayerLevel())
}

func (m *LevelMult) levelAt(playerLevel uint16) uint16 {
	level := uint16(math.Round(float64(playerLevel) * m.Mult))
	if level < m.Min {
		level = m.Min
	}
	if m.Max > 0 && level > m.Max {
		level = m.Max
	}
	if level == 0 {
		level = 1
	}
	return level
}

func (a *Actor) HasReachedLevelCap() bool {
	if a.levelMult == nil || a.levelMult.Max == 0 {
		return false
	}
	return a.Level() >= a.levelMult.Max
}

func (a *Actor) Keywords() []string {
	out := make([]string, 0, len(a.keywords))
	for _, kw := range a.keywords {
		out = append(out, kw.EditorID)
	}
	return out
}

// HasForm reports live possession of f.
func (a *Actor) HasForm(f *form.Form) bool {
	if f == nil {
		return false
	}
	switch f.Type {
	case form.TypeKeyword:
		return a.keywords.Contains(f)
	case form.TypeFaction:
		return a.factions.Contains(f)
	case form.TypeSpell:
		return a.spells.Contains(f)
	case form.TypeLeveledSpell:
		return a.leveledSpells.Contains(f)
	case form.TypePerk:
		return a.perks.Contains(f)
	case form.TypeShout:
		return a.shouts.Contains(f)
	case form.TypeRace:
		return a.race.SameAs(f)
	case form.TypeClass:
		return a.class.SameAs(f)
	case form.TypeCombatStyle:
		return a.combatStyle.SameAs(f)
	case form.TypeVoiceType:
		return a.voiceType.SameAs(f)
	case form.TypeLocation:
		return a.location.SameAs(f)
	case form.TypeOutfit:
		return a.defaultOutfit.SameAs(f)
	case form.TypePackage:
		return a.packages.Contains(f)
	case form.TypeArmor:
		return a.skin.SameAs(f) || a.ItemCount(f) > 0
	default:
		return a.ItemCount(f) > 0
	}
}

func (a *Actor) ItemCount(f *form.Form) int32 {
	for _, item := range a.inventory {
		if item.Form.SameAs(f) {
			return item.Count
		}
	}
	return 0
}

func (a *Actor) Inventory() []distribute.ItemCount { return a.inventory }
func (a *Actor) LeveledItemInits() int             { return a.leveledInits }
func (a *Actor) KeywordForms() form.List           { return a.keywords }
func (a *Actor) Factions() form.List               { return a.factions }
func (a *Actor) Spells() form.List                 { return a.spells }
func (a *Actor) LeveledSpells() form.List          { return a.leveledSpells }
func (a *Actor) Perks() form.List                  { return a.perks }
func (a *Actor) Shouts() form.List                 { return a.shouts }

func (a *Actor) PackList(slot distribute.PackSlot) *form.Form {
	if slot >= distribute.PackSlotCount {
		return nil
	}
	return a.packLists[slot]
}

func addUnique(list form.List, forms []*form.Form) form.List {
	for _, f := range forms {
		if f != nil && !list.Contains(f) {
			list = append(list, f)
		}
	}
	return list
}

func (a *Actor) AddKeywords(forms []*form.Form)      { a.keywords = addUnique(a.keywords, forms) }
func (a *Actor) AddFactions(forms []*form.Form)      { a.factions = addUnique(a.factions, forms) }
func (a *Actor) AddSpells(forms []*form.Form)        { a.spells = addUnique(a.spells, forms) }
func (a *Actor) AddLeveledSpells(forms []*form.Form) { a.leveledSpells = addUnique(a.leveledSpells, forms) }
func (a *Actor) AddPerks(forms []*form.Form)         { a.perks = addUnique(a.perks, forms) }
func (a *Actor) AddShouts(forms []*form.Form)        { a.shouts = addUnique(a.shouts, forms) }

func (a *Actor) AddItems(items []distribute.ItemCount) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.Form == nil || item.Count <= 0 {
			continue
		}
		found := false
		for i := range a.inventory {
			if a.inventory[i].Form.SameAs(item.Form) {
				if a.inventory[i].Count > math.MaxInt32-item.Count {
					a.inventory[i].Count = math.MaxInt32
				} else {
					a.inventory[i].Count += item.Count
				}
				found = true
				break
			}
		}
		if !found {
			a.inventory = append(a.inventory, item)
		}
	}
	return true
}

func (a *Actor) InitLeveledItems() { a.leveledInits++ }

func (a *Actor) DefaultOutfit() *form.Form          { return a.defaultOutfit }
func (a *Actor) SetDefaultOutfit(outfit *form.Form) { a.defaultOutfit = outfit }
func (a *Actor) WornOutfit() *form.Form             { return a.wornOutfit }
func (a *Actor) EquipOutfit(outfit *form.Form)      { a.wornOutfit = outfit }
func (a *Actor) SleepOutfit() *form.Form            { return a.sleepOutfit }
func (a *Actor) SetSleepOutfit(outfit *form.Form)   { a.sleepOutfit = outfit }
func (a *Actor) Skin() *form.Form                   { return a.skin }
func (a *Actor) SetSkin(skin *form.Form)            { a.skin = skin }
func (a *Actor) Packages() form.List                { return a.packages }
func (a *Actor) IsProcessed() bool                  { return a.processed }
func (a *Actor) MarkProcessed()                     { a.processed = true }

func (a *Actor) InsertPackage(pkg *form.Form, pos int) {
	a.packages = a.packages.InsertAt(pkg, pos)
}

func (a *Actor) SetPackList(slot distribute.PackSlot, list *form.Form) {
	if slot < distribute.PackSlotCount {
		a.packLists[slot] = list
	}
}

// Clone returns an independent copy sharing form handles, used to preview a
// distribution without touching the loaded world.
func (a *Actor) Clone() *Actor {
	out := *a
	out.templates = slices.Clone(a.templates)
	out.keywords = slices.Clone(a.keywords)
	out.factions = slices.Clone(a.factions)
	out.spells = slices.Clone(a.spells)
	out.leveledSpells = slices.Clone(a.leveledSpells)
	out.perks = slices.Clone(a.perks)
	out.shouts = slices.Clone(a.shouts)
	out.inventory = slices.Clone(a.inventory)
	out.packages = slices.Clone(a.packages)
	if a.levelMult != nil {
		mult := *a.levelMult
		out.levelMult = &mult
	}
	return &out
}
