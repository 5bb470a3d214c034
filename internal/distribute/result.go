package distribute

import (
	"fmt"

	"formdist/internal/form"
	"formdist/internal/lookup"
)

type Status uint8

const (
	Applied Status = iota
	Declined
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Declined:
		return "declined"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

const (
	ReasonAlreadyPresent   = "already present"
	ReasonAlreadyProcessed = "outfit already distributed"
	ReasonAlreadyDefault   = "already in effect"
	ReasonIncompatibleRace = "armor addon rejects race"
	ReasonOverridden       = "overridden by an earlier entry"
	ReasonInvalidCount     = "non-positive count"
	ReasonContainer        = "container rejected the grant"
	ReasonInvalidSlot      = "no pack list slot at index"
	ReasonInvalidTarget    = "form cannot be applied in this category"
)

// Outcome is the fate of one matched entry.
type Outcome struct {
	Category lookup.Category
	Index    uint32
	Form     *form.Form
	Count    int32
	Status   Status
	Reason   string
	Path     string
}

func (o Outcome) String() string {
	if o.Status == Declined {
		return fmt.Sprintf("%s %s: %s (%s)", o.Category, o.Form, o.Reason, o.Path)
	}
	return fmt.Sprintf("%s %s (%s)", o.Category, o.Form, o.Path)
}

// Result summarizes one pass for one character.
type Result struct {
	Actor       form.ID
	OnlyLeveled bool
	// LevelCapped is set when a leveled pass was skipped because the
	// character stopped scaling.
	LevelCapped bool
	Evaluated   int
	Failed      int
	FailedRoll  int
	Guarded     int
	Outcomes    []Outcome
}

func (r *Result) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == Applied {
			n++
		}
	}
	return n
}

// Granted returns the applied outcomes of one category.
func (r *Result) Granted(c lookup.Category) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Category == c && o.Status == Applied {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}
