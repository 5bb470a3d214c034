package lookup

import (
	"fmt"

	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/npc"
)

// RawFormFilters holds unresolved form filter operands.
type RawFormFilters struct {
	All   []form.Identifier
	Not   []form.Identifier
	Match []form.Identifier
}

type RawTraits struct {
	Sex        npc.Sex
	Unique     *bool
	Summonable *bool
	Child      *bool
	Leveled    *bool
	Teammate   *bool
	Race       form.Identifier
}

// RawRecord is one rule as read from a rule source, before resolution.
type RawRecord struct {
	Target     form.Identifier
	Strings    filter.Strings
	Forms      RawFormFilters
	Level      filter.LevelRange
	Traits     RawTraits
	IdxOrCount int32
	Chance     *float64
	Path       string
}

// Entry is a resolved rule. Entries are immutable once their collection is
// finalized.
type Entry struct {
	Index      uint32
	Form       *form.Form
	IdxOrCount int32
	Filters    filter.Data
	Path       string
}

// SameForm compares entries by target identity.
func (e *Entry) SameForm(other *Entry) bool {
	return e.Form.SameAs(other.Form)
}

func (e *Entry) String() string {
	return fmt.Sprintf("#%d %s (%s)", e.Index, e.Form, e.Path)
}

// Diagnostic describes a record or filter operand dropped during lookup.
// Warnings leave the entry in place.
type Diagnostic struct {
	Category Category
	Path     string
	Target   string
	Err      error
	Warning  bool
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[%s] %s %s: %v", d.Path, d.Category, d.Target, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}
