package distribute

import (
	"fmt"

	"formdist/internal/form"
)

// ItemCount is one line of a batched container grant.
type ItemCount struct {
	Form  *form.Form
	Count int32
}

// PackSlot selects one of the override package lists of a character.
type PackSlot uint8

const (
	PackDefault PackSlot = iota
	PackSpectator
	PackObserveCorpse
	PackGuardWarn
	PackEnterCombat

	PackSlotCount
)

func (s PackSlot) String() string {
	switch s {
	case PackDefault:
		return "default"
	case PackSpectator:
		return "spectator"
	case PackObserveCorpse:
		return "observe_corpse"
	case PackGuardWarn:
		return "guard_warn"
	case PackEnterCombat:
		return "enter_combat"
	default:
		return fmt.Sprintf("pack_slot(%d)", uint8(s))
	}
}

// Target is the host's mutation surface for one character.
type Target interface {
	AddKeywords(forms []*form.Form)
	AddFactions(forms []*form.Form)
	AddSpells(forms []*form.Form)
	AddLeveledSpells(forms []*form.Form)
	AddPerks(forms []*form.Form)
	AddShouts(forms []*form.Form)

	// AddItems grants every line in one container operation and reports
	// whether the container accepted it.
	AddItems(items []ItemCount) bool
	InitLeveledItems()

	DefaultOutfit() *form.Form
	SetDefaultOutfit(outfit *form.Form)
	WornOutfit() *form.Form
	EquipOutfit(outfit *form.Form)
	SleepOutfit() *form.Form
	SetSleepOutfit(outfit *form.Form)
	Skin() *form.Form
	SetSkin(skin *form.Form)

	Packages() form.List
	InsertPackage(pkg *form.Form, pos int)
	SetPackList(slot PackSlot, list *form.Form)

	// IsProcessed reports whether an outfit was already distributed to the
	// character.
	IsProcessed() bool
	MarkProcessed()
}

// LevelCapper is implemented by targets whose level scales with the player
// level and can stop scaling.
type LevelCapper interface {
	HasReachedLevelCap() bool
}
