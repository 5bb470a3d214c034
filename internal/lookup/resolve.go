package lookup

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"formdist/internal/filter"
	"formdist/internal/form"
)

var (
	ErrUnknownPlugin    = errors.New("plugin cannot be found")
	ErrFormNotFound     = errors.New("form doesn't exist")
	ErrEditorIDNotFound = errors.New("editor id doesn't exist")
	ErrInvalidFormType  = errors.New("invalid form type")
	ErrMissingEditorID  = errors.New("keyword has no editor id")
	ErrCreateFailed     = errors.New("failed to create form")
	ErrEmptyTarget      = errors.New("empty target")
)

// Resolver turns raw identifiers into live registry handles.
type Resolver struct {
	registry form.Registry
	remapper form.Remapper
	logger   *zap.Logger
}

// NewResolver returns a resolver. remapper and logger may be nil.
func NewResolver(registry form.Registry, remapper form.Remapper, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, remapper: remapper, logger: logger}
}

func (r *Resolver) remap(id form.Identifier) form.Identifier {
	if r.remapper == nil || (id.File == "" && id.FormID == 0) {
		return id
	}
	file, formID := r.remapper.Remap(id.File, id.FormID)
	if file == id.File && formID == id.FormID {
		return id
	}
	remapped := form.Identifier{FormID: formID, File: file, EditorID: id.EditorID}
	r.logger.Info("remapped identifier",
		zap.String("old", id.String()),
		zap.String("new", remapped.String()),
	)
	return remapped
}

// Target resolves the target of a rule in category c, creating a keyword
// for an unknown editor ID when the category allows it.
func (r *Resolver) Target(c Category, id form.Identifier) (*form.Form, error) {
	f, err := r.find(id)
	if errors.Is(err, ErrEditorIDNotFound) && c.CanCreate() {
		created, createErr := r.registry.CreateForm(form.TypeKeyword, id.EditorID)
		if createErr == nil && created == nil {
			createErr = errors.New("registry returned no form")
		}
		if createErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCreateFailed, id.EditorID, createErr)
		}
		r.logger.Info("created keyword", zap.String("editor_id", id.EditorID), zap.Stringer("form", created.ID))
		f, err = created, nil
	}
	if err != nil {
		return nil, err
	}
	if !c.Accepts(f.Type) {
		return nil, fmt.Errorf("%w: %s is %s, %s rules need another type", ErrInvalidFormType, id, f.Type, c)
	}
	if c == Keyword && f.EditorID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingEditorID, id)
	}
	return f, nil
}

// Member resolves one form filter operand. A plugin on its own resolves to
// a plugin member.
func (r *Resolver) Member(id form.Identifier) (filter.Member, error) {
	id = r.remap(id)
	if id.IsFileOnly() {
		file, ok := r.registry.LookupFile(id.File)
		if !ok {
			return filter.Member{}, fmt.Errorf("%w: %s", ErrUnknownPlugin, id.File)
		}
		return filter.FileMember(file), nil
	}
	f, err := r.lookup(id)
	if err != nil {
		return filter.Member{}, err
	}
	if !filterTypes(f.Type) {
		return filter.Member{}, fmt.Errorf("%w: %s is %s", ErrInvalidFormType, id, f.Type)
	}
	return filter.FormMember(f), nil
}

// Race resolves a race trait.
func (r *Resolver) Race(id form.Identifier) (*form.Form, error) {
	f, err := r.find(id)
	if err != nil {
		return nil, err
	}
	if !f.Is(form.TypeRace) {
		return nil, fmt.Errorf("%w: %s is %s, expected race", ErrInvalidFormType, id, f.Type)
	}
	return f, nil
}

func (r *Resolver) find(id form.Identifier) (*form.Form, error) {
	id = r.remap(id)
	if id.IsFileOnly() {
		return nil, fmt.Errorf("%w: %s names a plugin, not a form", ErrFormNotFound, id)
	}
	return r.lookup(id)
}

func (r *Resolver) lookup(id form.Identifier) (*form.Form, error) {
	switch {
	case id.IsZero():
		return nil, ErrEmptyTarget
	case id.FormID != 0 && id.File != "":
		if _, ok := r.registry.LookupFile(id.File); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, id.File)
		}
		f, ok := r.registry.LookupForm(id.FormID, id.File)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
		}
		return f, nil
	case id.FormID != 0:
		f, ok := r.registry.LookupByID(id.FormID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
		}
		return f, nil
	default:
		f, ok := r.registry.LookupByEditorID(id.EditorID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEditorIDNotFound, id.EditorID)
		}
		return f, nil
	}
}
