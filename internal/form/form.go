// Package form models the host registry: plugins, forms and the identifiers
// rule authors use to reference them.
package form

import (
	"fmt"
	"strings"
)

type ID uint32

func (id ID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// LocalID strips the load order index.
func (id ID) LocalID() ID {
	return id & 0x00FFFFFF
}

func (id ID) FileIndex() uint8 {
	return uint8(id >> 24)
}

// File is a plugin (source package) loaded by the host.
type File struct {
	Name  string
	Index uint8
}

func (f *File) Owns(id ID) bool {
	return f != nil && id.FileIndex() == f.Index
}

// Form is a live entity owned by the host registry. The engine only holds
// borrowed pointers that stay valid while the world is loaded.
type Form struct {
	ID       ID
	EditorID string
	Type     Type
	File     string

	// Members holds outfit items, form list entries or leveled list entries.
	Members []*Form
	// Addons holds the armor addons of an armor.
	Addons []*Form
	// Races restricts an armor addon; empty accepts every race.
	Races []*Form
}

func (f *Form) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.EditorID != "" {
		return fmt.Sprintf("%s [%s]", f.EditorID, f.ID)
	}
	return fmt.Sprintf("[%s]", f.ID)
}

func (f *Form) Is(t Type) bool {
	return f != nil && f.Type == t
}

func (f *Form) SameAs(other *Form) bool {
	if f == nil || other == nil {
		return false
	}
	return f.ID == other.ID
}

func (f *Form) HasEditorID(editorID string) bool {
	return f != nil && f.EditorID != "" && strings.EqualFold(f.EditorID, editorID)
}

// AcceptsRace reports whether every armor addon of an armor can be worn by
// the given race. Forms without addons accept any race.
func (f *Form) AcceptsRace(race *Form) bool {
	if f == nil {
		return false
	}
	for _, addon := range f.Addons {
		if addon == nil || len(addon.Races) == 0 {
			continue
		}
		allowed := false
		for _, r := range addon.Races {
			if r.SameAs(race) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// Registry is the host's form lookup service.
type Registry interface {
	LookupByID(id ID) (*Form, bool)
	LookupForm(localID ID, file string) (*Form, bool)
	LookupByEditorID(editorID string) (*Form, bool)
	LookupFile(name string) (*File, bool)
	FormsOfType(t Type) []*Form
	CreateForm(t Type, editorID string) (*Form, error)
}

// Remapper rewrites identifiers authored against plugins that were later
// merged or renamed. Implementations return the inputs unchanged when no
// mapping applies.
type Remapper interface {
	Remap(file string, id ID) (string, ID)
}
