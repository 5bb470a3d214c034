// Package filter evaluates rule predicates against a character snapshot.
//
// A predicate is a set of independent clauses. Every clause must pass;
// within a clause the ALL / NOT / MATCH / ANY quantifier applies, and an
// empty clause passes. The zero Data value therefore matches everything.
package filter

import (
	"fmt"
	"strings"

	"formdist/internal/form"
	"formdist/internal/npc"
)

type Result uint8

const (
	Pass Result = iota
	Fail
	// FailChance means every deterministic clause passed but the chance roll
	// did not.
	FailChance
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case FailChance:
		return "fail_chance"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// Clause names the clause that decided an evaluation.
type Clause string

const (
	ClauseNone         Clause = ""
	ClauseStringsAll   Clause = "strings.all"
	ClauseStringsNot   Clause = "strings.not"
	ClauseStringsMatch Clause = "strings.match"
	ClauseStringsAny   Clause = "strings.any"
	ClauseFormsAll     Clause = "forms.all"
	ClauseFormsNot     Clause = "forms.not"
	ClauseFormsMatch   Clause = "forms.match"
	ClauseLevel        Clause = "level"
	ClauseSex          Clause = "traits.sex"
	ClauseUnique       Clause = "traits.unique"
	ClauseSummonable   Clause = "traits.summonable"
	ClauseChild        Clause = "traits.child"
	ClauseLeveled      Clause = "traits.leveled"
	ClauseTeammate     Clause = "traits.teammate"
	ClauseRace         Clause = "traits.race"
	ClauseChance       Clause = "chance"
)

type Strings struct {
	All   []string
	Not   []string
	Match []string
	Any   []string
}

func (s Strings) IsEmpty() bool {
	return len(s.All) == 0 && len(s.Not) == 0 && len(s.Match) == 0 && len(s.Any) == 0
}

// Member is one form filter operand: a form, or a whole plugin meaning "the
// character or one of its templates comes from this plugin".
type Member struct {
	Form *form.Form
	File *form.File
}

func FormMember(f *form.Form) Member { return Member{Form: f} }
func FileMember(f *form.File) Member { return Member{File: f} }

func (m Member) String() string {
	if m.File != nil {
		return m.File.Name
	}
	return m.Form.String()
}

func (m Member) possessedBy(s *npc.Snapshot) bool {
	if m.File != nil {
		return s.InFile(m.File.Name)
	}
	return s.HasForm(m.Form)
}

type Forms struct {
	All   []Member
	Not   []Member
	Match []Member
}

func (f Forms) IsEmpty() bool {
	return len(f.All) == 0 && len(f.Not) == 0 && len(f.Match) == 0
}

// LevelRange is inclusive; a nil bound is open.
type LevelRange struct {
	Min *uint16
	Max *uint16
}

func (r LevelRange) IsSet() bool {
	return r.Min != nil || r.Max != nil
}

func (r LevelRange) Contains(level uint16) bool {
	if r.Min != nil && level < *r.Min {
		return false
	}
	if r.Max != nil && level > *r.Max {
		return false
	}
	return true
}

// Traits lists required flags; unset fields are ignored.
type Traits struct {
	Sex        npc.Sex
	Unique     *bool
	Summonable *bool
	Child      *bool
	Leveled    *bool
	Teammate   *bool
	Race       *form.Form
}

func (t Traits) IsEmpty() bool {
	return t.Sex == npc.SexNone && t.Unique == nil && t.Summonable == nil && t.Child == nil &&
		t.Leveled == nil && t.Teammate == nil && t.Race == nil
}

// Data is a resolved rule predicate. Chance is a percentage; nil means 100.
type Data struct {
	Strings Strings
	Forms   Forms
	Level   LevelRange
	Traits  Traits
	Chance  *float64
}

func Percent(p float64) *float64 { return &p }
func Level(v uint16) *uint16     { return &v }
func Bool(v bool) *bool          { return &v }

func (d *Data) HasLevelFilters() bool {
	return d.Level.IsSet()
}

func (d *Data) IsEmpty() bool {
	return d.Strings.IsEmpty() && d.Forms.IsEmpty() && !d.Level.IsSet() && d.Traits.IsEmpty() && d.Chance == nil
}

func (d *Data) ChancePercent() float64 {
	if d.Chance == nil {
		return 100
	}
	return *d.Chance
}

// Matches is Evaluate reduced to a boolean.
func Matches(s *npc.Snapshot, d *Data, roller Roller) bool {
	result, _ := d.Evaluate(s, roller)
	return result == Pass
}

// Evaluate checks every clause against the snapshot and reports the first
// clause that failed. The chance roll is drawn last, once per call.
func (d *Data) Evaluate(s *npc.Snapshot, roller Roller) (Result, Clause) {
	if clause := d.evaluateStrings(s); clause != ClauseNone {
		return Fail, clause
	}
	if clause := d.evaluateForms(s); clause != ClauseNone {
		return Fail, clause
	}
	if !d.Level.Contains(s.Level()) {
		return Fail, ClauseLevel
	}
	if clause := d.evaluateTraits(s); clause != ClauseNone {
		return Fail, clause
	}
	if !passesChance(d.ChancePercent(), roller) {
		return FailChance, ClauseChance
	}
	return Pass, ClauseNone
}

func (d *Data) evaluateStrings(s *npc.Snapshot) Clause {
	for _, value := range d.Strings.All {
		if !s.HasString(value) {
			return ClauseStringsAll
		}
	}
	for _, value := range d.Strings.Not {
		if s.HasString(value) {
			return ClauseStringsNot
		}
	}
	if len(d.Strings.Match) > 0 && !anyString(d.Strings.Match, s.HasString) {
		return ClauseStringsMatch
	}
	if len(d.Strings.Any) > 0 && !anyString(d.Strings.Any, s.ContainsString) {
		return ClauseStringsAny
	}
	return ClauseNone
}

func (d *Data) evaluateForms(s *npc.Snapshot) Clause {
	for _, member := range d.Forms.All {
		if !member.possessedBy(s) {
			return ClauseFormsAll
		}
	}
	for _, member := range d.Forms.Not {
		if member.possessedBy(s) {
			return ClauseFormsNot
		}
	}
	if len(d.Forms.Match) > 0 {
		matched := false
		for _, member := range d.Forms.Match {
			if member.possessedBy(s) {
				matched = true
				break
			}
		}
		if !matched {
			return ClauseFormsMatch
		}
	}
	return ClauseNone
}

func (d *Data) evaluateTraits(s *npc.Snapshot) Clause {
	t := d.Traits
	switch {
	case t.Sex != npc.SexNone && s.Sex() != t.Sex:
		return ClauseSex
	case t.Unique != nil && s.IsUnique() != *t.Unique:
		return ClauseUnique
	case t.Summonable != nil && s.IsSummonable() != *t.Summonable:
		return ClauseSummonable
	case t.Child != nil && s.IsChild() != *t.Child:
		return ClauseChild
	case t.Leveled != nil && s.IsLeveled() != *t.Leveled:
		return ClauseLeveled
	case t.Teammate != nil && s.IsTeammate() != *t.Teammate:
		return ClauseTeammate
	case t.Race != nil && !t.Race.SameAs(s.Race()):
		return ClauseRace
	}
	return ClauseNone
}

func anyString(values []string, pred func(string) bool) bool {
	for _, value := range values {
		if pred(value) {
			return true
		}
	}
	return false
}

func (d *Data) String() string {
	var parts []string
	if !d.Strings.IsEmpty() {
		parts = append(parts, fmt.Sprintf("strings(all=%v not=%v match=%v any=%v)", d.Strings.All, d.Strings.Not, d.Strings.Match, d.Strings.Any))
	}
	if !d.Forms.IsEmpty() {
		parts = append(parts, fmt.Sprintf("forms(all=%d not=%d match=%d)", len(d.Forms.All), len(d.Forms.Not), len(d.Forms.Match)))
	}
	if d.Level.IsSet() {
		parts = append(parts, fmt.Sprintf("level(%s/%s)", bound(d.Level.Min), bound(d.Level.Max)))
	}
	if !d.Traits.IsEmpty() {
		parts = append(parts, "traits")
	}
	if d.Chance != nil {
		parts = append(parts, fmt.Sprintf("chance(%g)", *d.Chance))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func bound(v *uint16) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprintf("%d", *v)
}
