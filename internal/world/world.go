// Package world is an in-memory host: a form registry and a set of
// characters that rules can be distributed to.
package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"formdist/internal/form"
)

const (
	maxPlugins = 0xFE
	// createdIndex is the load order slot of forms created at runtime.
	createdIndex = 0xFF
	createdStart = form.ID(createdIndex<<24 | 0x800)
)

var (
	ErrDuplicatePlugin   = errors.New("duplicate plugin in load order")
	ErrTooManyPlugins    = errors.New("too many plugins in load order")
	ErrUnknownPlugin     = errors.New("plugin not in load order")
	ErrDuplicateForm     = errors.New("duplicate form id")
	ErrDuplicateEditorID = errors.New("duplicate editor id")
	ErrUnresolved        = errors.New("unresolved reference")
)

// World satisfies form.Registry. Forms and actors are added while loading;
// CreateForm may be called afterwards.
type World struct {
	mu          sync.RWMutex
	files       []*form.File
	filesByName map[string]*form.File
	forms       map[form.ID]*form.Form
	editorIDs   map[string]*form.Form
	byType      map[form.Type][]*form.Form
	actors      []*Actor
	actorsByID  map[form.ID]*Actor
	nextCreated form.ID
	playerLevel uint16
}

var _ form.Registry = (*World)(nil)

// New creates an empty world whose plugins follow loadOrder.
func New(loadOrder []string) (*World, error) {
	if len(loadOrder) > maxPlugins {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPlugins, len(loadOrder))
	}
	w := &World{
		filesByName: make(map[string]*form.File, len(loadOrder)),
		forms:       make(map[form.ID]*form.Form),
		editorIDs:   make(map[string]*form.Form),
		byType:      make(map[form.Type][]*form.Form),
		actorsByID:  make(map[form.ID]*Actor),
		nextCreated: createdStart,
		playerLevel: 1,
	}
	for i, name := range loadOrder {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := w.filesByName[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
		file := &form.File{Name: strings.TrimSpace(name), Index: uint8(i)}
		w.files = append(w.files, file)
		w.filesByName[key] = file
	}
	return w, nil
}

func (w *World) Files() []*form.File {
	return w.files
}

func (w *World) PlayerLevel() uint16 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.playerLevel
}

// SetPlayerLevel changes the level player-scaled characters derive their own
// level from.
func (w *World) SetPlayerLevel(level uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if level == 0 {
		level = 1
	}
	w.playerLevel = level
}

// AddForm registers a form owned by file under its local id.
func (w *World) AddForm(localID form.ID, file string, t form.Type, editorID string) (*form.Form, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.filesByName[strings.ToLower(file)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, file)
	}
	id := form.ID(f.Index)<<24 | localID.LocalID()
	return w.register(&form.Form{ID: id, EditorID: editorID, Type: t, File: f.Name})
}

func (w *World) register(f *form.Form) (*form.Form, error) {
	if existing, ok := w.forms[f.ID]; ok {
		return nil, fmt.Errorf("%w: %s already defined as %s", ErrDuplicateForm, f.ID, existing)
	}
	if f.EditorID != "" {
		key := strings.ToLower(f.EditorID)
		if existing, ok := w.editorIDs[key]; ok {
			return nil, fmt.Errorf("%w: %s already used by %s", ErrDuplicateEditorID, f.EditorID, existing)
		}
		w.editorIDs[key] = f
	}
	w.forms[f.ID] = f
	w.byType[f.Type] = append(w.byType[f.Type], f)
	return f, nil
}

func (w *World) LookupByID(id form.ID) (*form.Form, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.forms[id]
	return f, ok
}

func (w *World) LookupForm(localID form.ID, file string) (*form.Form, bool) {
	f, ok := w.LookupFile(file)
	if !ok {
		return nil, false
	}
	return w.LookupByID(form.ID(f.Index)<<24 | localID.LocalID())
}

func (w *World) LookupByEditorID(editorID string) (*form.Form, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.editorIDs[strings.ToLower(editorID)]
	return f, ok
}

func (w *World) LookupFile(name string) (*form.File, bool) {
	f, ok := w.filesByName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

func (w *World) FormsOfType(t form.Type) []*form.Form {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.byType[t])
}

// CreateForm allocates a runtime form in the created-forms range.
func (w *World) CreateForm(t form.Type, editorID string) (*form.Form, error) {
	if strings.TrimSpace(editorID) == "" {
		return nil, fmt.Errorf("create %s: editor id is required", t)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextCreated
	f, err := w.register(&form.Form{ID: id, EditorID: editorID, Type: t})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", t, err)
	}
	w.nextCreated++
	return f, nil
}

// Forms returns every registered form ordered by id.
func (w *World) Forms() []*form.Form {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*form.Form, 0, len(w.forms))
	for _, f := range w.forms {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *form.Form) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Actors returns the characters in load order.
func (w *World) Actors() []*Actor {
	return w.actors
}

func (w *World) Actor(id form.ID) (*Actor, bool) {
	a, ok := w.actorsByID[id]
	return a, ok
}

// FindActor accepts a form id, an id with plugin, or an editor ID.
func (w *World) FindActor(id form.Identifier) (*Actor, bool) {
	var f *form.Form
	var ok bool
	switch {
	case id.FormID != 0 && id.File != "":
		f, ok = w.LookupForm(id.FormID, id.File)
	case id.FormID != 0:
		f, ok = w.LookupByID(id.FormID)
	case id.EditorID != "":
		f, ok = w.LookupByEditorID(id.EditorID)
	}
	if !ok {
		return nil, false
	}
	return w.Actor(f.ID)
}
