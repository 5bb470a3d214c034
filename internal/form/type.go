package form

import (
	"fmt"
	"strings"
)

type Type uint8

const (
	TypeNone Type = iota
	TypeKeyword
	TypeFaction
	TypeSpell
	TypeLeveledSpell
	TypePerk
	TypeShout
	TypeArmor
	TypeArmorAddon
	TypeWeapon
	TypeMisc
	TypeAmmo
	TypeBook
	TypeIngredient
	TypePotion
	TypeScroll
	TypeLight
	TypeSoulGem
	TypeKey
	TypeLeveledItem
	TypeOutfit
	TypePackage
	TypeFormList
	TypeRace
	TypeClass
	TypeCombatStyle
	TypeVoiceType
	TypeNPC
	TypeLocation
)

var typeNames = map[Type]string{
	TypeKeyword:      "keyword",
	TypeFaction:      "faction",
	TypeSpell:        "spell",
	TypeLeveledSpell: "leveled_spell",
	TypePerk:         "perk",
	TypeShout:        "shout",
	TypeArmor:        "armor",
	TypeArmorAddon:   "armor_addon",
	TypeWeapon:       "weapon",
	TypeMisc:         "misc",
	TypeAmmo:         "ammo",
	TypeBook:         "book",
	TypeIngredient:   "ingredient",
	TypePotion:       "potion",
	TypeScroll:       "scroll",
	TypeLight:        "light",
	TypeSoulGem:      "soul_gem",
	TypeKey:          "key",
	TypeLeveledItem:  "leveled_item",
	TypeOutfit:       "outfit",
	TypePackage:      "package",
	TypeFormList:     "form_list",
	TypeRace:         "race",
	TypeClass:        "class",
	TypeCombatStyle:  "combat_style",
	TypeVoiceType:    "voice_type",
	TypeNPC:          "npc",
	TypeLocation:     "location",
}

var typesByName = func() map[string]Type {
	out := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		out[name] = t
	}
	return out
}()

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func ParseType(name string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if t, ok := typesByName[key]; ok {
		return t, nil
	}
	return TypeNone, fmt.Errorf("unknown form type: %q", name)
}

// IsBoundObject reports whether forms of this type can live in an inventory.
func (t Type) IsBoundObject() bool {
	switch t {
	case TypeArmor, TypeWeapon, TypeMisc, TypeAmmo, TypeBook, TypeIngredient,
		TypePotion, TypeScroll, TypeLight, TypeSoulGem, TypeKey, TypeLeveledItem:
		return true
	}
	return false
}
