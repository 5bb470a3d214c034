package form

// List is an ordered form sequence such as an NPC's AI package stack.
type List []*Form

func (l List) Contains(f *Form) bool {
	for _, item := range l {
		if item.SameAs(f) {
			return true
		}
	}
	return false
}

// InsertAt returns a copy of l with f inserted at pos. Position 0 inserts at
// the front; any other position inserts after the element at pos-1, and a
// position past the end appends.
func (l List) InsertAt(f *Form, pos int) List {
	at := pos
	if at < 0 {
		at = 0
	}
	if at > len(l) {
		at = len(l)
	}
	out := make(List, 0, len(l)+1)
	out = append(out, l[:at]...)
	out = append(out, f)
	out = append(out, l[at:]...)
	return out
}

func (l List) IDs() []ID {
	ids := make([]ID, 0, len(l))
	for _, item := range l {
		ids = append(ids, item.ID)
	}
	return ids
}
