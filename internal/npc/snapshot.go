// Package npc builds the read-only per-pass view of a character that rule
// filters are evaluated against.
package npc

import (
	"fmt"
	"strings"

	"formdist/internal/form"
)

type Sex uint8

const (
	SexNone Sex = iota
	SexMale
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "none"
	}
}

func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "m", "male":
		return SexMale, nil
	case "f", "female":
		return SexFemale, nil
	case "", "none":
		return SexNone, nil
	}
	return SexNone, fmt.Errorf("unknown sex: %q", value)
}

// Identity is one link of a character's identity chain: the character itself
// followed by its templates.
type Identity struct {
	ID       form.ID
	EditorID string
	File     string
}

// Character is the host-side view a Snapshot is built from.
type Character interface {
	Identities() []Identity
	Name() string
	Race() *form.Form
	Level() uint16
	Sex() Sex
	IsUnique() bool
	IsSummonable() bool
	IsChild() bool
	IsLeveled() bool
	IsTeammate() bool
	Keywords() []string
	HasForm(f *form.Form) bool
}

// Snapshot is built once per distribution pass and never mutated. It borrows
// the character and must not outlive the pass that created it.
type Snapshot struct {
	character  Character
	ids        []Identity
	name       string
	race       *form.Form
	level      uint16
	sex        Sex
	unique     bool
	summonable bool
	child      bool
	leveled    bool
	teammate   bool
	keywords   map[string]struct{}
}

func New(c Character) *Snapshot {
	kws := c.Keywords()
	s := &Snapshot{
		character:  c,
		ids:        append([]Identity(nil), c.Identities()...),
		name:       c.Name(),
		race:       c.Race(),
		level:      c.Level(),
		sex:        c.Sex(),
		unique:     c.IsUnique(),
		summonable: c.IsSummonable(),
		child:      c.IsChild(),
		leveled:    c.IsLeveled(),
		teammate:   c.IsTeammate(),
		keywords:   make(map[string]struct{}, len(kws)),
	}
	for _, kw := range kws {
		if kw == "" {
			continue
		}
		s.keywords[strings.ToLower(kw)] = struct{}{}
	}
	return s
}

// WithKeywords returns a copy that also carries the given keywords. The
// receiver is left untouched.
func (s *Snapshot) WithKeywords(names ...string) *Snapshot {
	out := *s
	out.keywords = make(map[string]struct{}, len(s.keywords)+len(names))
	for kw := range s.keywords {
		out.keywords[kw] = struct{}{}
	}
	for _, kw := range names {
		if kw == "" {
			continue
		}
		out.keywords[strings.ToLower(kw)] = struct{}{}
	}
	return &out
}

func (s *Snapshot) ID() form.ID {
	if len(s.ids) == 0 {
		return 0
	}
	return s.ids[0].ID
}

func (s *Snapshot) Identities() []Identity { return s.ids }
func (s *Snapshot) Name() string           { return s.name }
func (s *Snapshot) Race() *form.Form       { return s.race }
func (s *Snapshot) Level() uint16          { return s.level }
func (s *Snapshot) Sex() Sex               { return s.sex }
func (s *Snapshot) IsUnique() bool         { return s.unique }
func (s *Snapshot) IsSummonable() bool     { return s.summonable }
func (s *Snapshot) IsChild() bool          { return s.child }
func (s *Snapshot) IsLeveled() bool        { return s.leveled }
func (s *Snapshot) IsTeammate() bool       { return s.teammate }

func (s *Snapshot) String() string {
	if len(s.ids) == 0 {
		return s.name
	}
	return fmt.Sprintf("%s (%s) [%s]", s.name, s.ids[0].EditorID, s.ids[0].ID)
}

func (s *Snapshot) HasKeyword(name string) bool {
	_, ok := s.keywords[strings.ToLower(name)]
	return ok
}

// HasString matches a keyword, the display name, or an editor ID of the
// identity chain, ignoring case.
func (s *Snapshot) HasString(value string) bool {
	if s.HasKeyword(value) || strings.EqualFold(s.name, value) {
		return true
	}
	for _, id := range s.ids {
		if id.EditorID != "" && strings.EqualFold(id.EditorID, value) {
			return true
		}
	}
	return false
}

// ContainsString is the substring variant of HasString.
func (s *Snapshot) ContainsString(value string) bool {
	needle := strings.ToLower(value)
	if strings.Contains(strings.ToLower(s.name), needle) {
		return true
	}
	for _, id := range s.ids {
		if strings.Contains(strings.ToLower(id.EditorID), needle) {
			return true
		}
	}
	for kw := range s.keywords {
		if strings.Contains(kw, needle) {
			return true
		}
	}
	return false
}

func (s *Snapshot) HasIdentity(id form.ID) bool {
	for _, item := range s.ids {
		if item.ID == id {
			return true
		}
	}
	return false
}

// InFile reports whether the character or any of its templates originates
// from the named plugin.
func (s *Snapshot) InFile(file string) bool {
	for _, item := range s.ids {
		if item.File != "" && strings.EqualFold(item.File, file) {
			return true
		}
	}
	return false
}

// HasForm reports whether the character possesses f: carries the keyword,
// is of the race, is or is templated on the NPC, possesses any member of a
// form list, or otherwise holds f on its live record.
func (s *Snapshot) HasForm(f *form.Form) bool {
	return s.hasForm(f, make(map[form.ID]struct{}))
}

func (s *Snapshot) hasForm(f *form.Form, seen map[form.ID]struct{}) bool {
	if f == nil {
		return false
	}
	switch f.Type {
	case form.TypeKeyword:
		return s.HasKeyword(f.EditorID)
	case form.TypeRace:
		return s.race.SameAs(f)
	case form.TypeNPC:
		return s.HasIdentity(f.ID)
	case form.TypeFormList:
		if _, ok := seen[f.ID]; ok {
			return false
		}
		seen[f.ID] = struct{}{}
		for _, member := range f.Members {
			if s.hasForm(member, seen) {
				return true
			}
		}
		return false
	default:
		if s.character == nil {
			return false
		}
		return s.character.HasForm(f)
	}
}
