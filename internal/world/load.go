package world

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"formdist/internal/distribute"
	"formdist/internal/form"
	"formdist/internal/npc"
	"formdist/internal/parser"
)

// Load builds a world from parsed documents. Every record is registered
// before any reference is resolved, so documents may reference each other
// in any order. All reference errors are reported together.
func Load(loadOrder []string, docs []*parser.Document) (*World, error) {
	w, err := New(loadOrder)
	if err != nil {
		return nil, err
	}

	ordered := slices.Clone(docs)
	for _, doc := range ordered {
		if _, ok := w.LookupFile(doc.Plugin); !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownPlugin, doc.Plugin, doc.SourceFile)
		}
	}
	slices.SortStableFunc(ordered, func(a, b *parser.Document) int {
		fa, _ := w.LookupFile(a.Plugin)
		fb, _ := w.LookupFile(b.Plugin)
		return int(fa.Index) - int(fb.Index)
	})

	for _, doc := range ordered {
		for _, spec := range doc.Forms {
			t, err := form.ParseType(spec.Type)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", doc.Plugin, spec.ID, err)
			}
			if _, err := w.AddForm(spec.ID.FormID, doc.Plugin, t, spec.EditorID); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.Plugin, err)
			}
		}
		for _, spec := range doc.Actors {
			if _, err := w.AddForm(spec.ID.FormID, doc.Plugin, form.TypeNPC, spec.EditorID); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.Plugin, err)
			}
		}
	}

	var errs []error
	for _, doc := range ordered {
		r := &refResolver{world: w, plugin: doc.Plugin}
		for _, spec := range doc.Forms {
			f, _ := w.LookupForm(spec.ID.FormID, doc.Plugin)
			f.Members = r.many(spec.Members)
			f.Addons = r.many(spec.Addons)
			f.Races = r.many(spec.Races)
		}
		for _, spec := range doc.Actors {
			actor := r.actor(spec)
			w.actors = append(w.actors, actor)
			w.actorsByID[actor.base.ID] = actor
		}
		errs = append(errs, r.errs...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return w, nil
}

// ReadDocuments parses every .yaml and .yml file under roots, skipping
// excluded paths. Files are returned in lexical path order.
func ReadDocuments(roots []string, excludes []string) ([]*parser.Document, error) {
	files, err := WalkYAML(roots, excludes)
	if err != nil {
		return nil, err
	}
	docs := make([]*parser.Document, 0, len(files))
	for _, path := range files {
		doc, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// WalkYAML lists the YAML files under roots in lexical order.
func WalkYAML(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isExcluded(path, excluded) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// refResolver resolves references inside one document. A bare form id
// refers to the document's own plugin.
type refResolver struct {
	world  *World
	plugin string
	errs   []error
}

func (r *refResolver) one(id form.Identifier) *form.Form {
	if id.IsZero() {
		return nil
	}
	var f *form.Form
	var ok bool
	switch {
	case id.FormID != 0 && id.File != "":
		f, ok = r.world.LookupForm(id.FormID, id.File)
	case id.FormID != 0:
		f, ok = r.world.LookupForm(id.FormID, r.plugin)
	case id.EditorID != "":
		f, ok = r.world.LookupByEditorID(id.EditorID)
	}
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("%w: %s in %s", ErrUnresolved, id, r.plugin))
		return nil
	}
	return f
}

func (r *refResolver) many(ids []form.Identifier) []*form.Form {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*form.Form, 0, len(ids))
	for _, id := range ids {
		if f := r.one(id); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (r *refResolver) actor(spec parser.ActorSpec) *Actor {
	base, _ := r.world.LookupForm(spec.ID.FormID, r.plugin)
	sex, _ := npc.ParseSex(spec.Sex)
	a := &Actor{
		world:         r.world,
		base:          base,
		templates:     r.many(spec.Templates),
		name:          spec.Name,
		race:          r.one(spec.Race),
		level:         spec.Level,
		sex:           sex,
		unique:        spec.Unique,
		summonable:    spec.Summonable,
		child:         spec.Child,
		teammate:      spec.Teammate,
		class:         r.one(spec.Class),
		combatStyle:   r.one(spec.CombatStyle),
		voiceType:     r.one(spec.VoiceType),
		location:      r.one(spec.Location),
		keywords:      r.many(spec.Keywords),
		factions:      r.many(spec.Factions),
		spells:        r.many(spec.Spells),
		leveledSpells: r.many(spec.LeveledSpells),
		perks:         r.many(spec.Perks),
		shouts:        r.many(spec.Shouts),
		packages:      r.many(spec.Packages),
		defaultOutfit: r.one(spec.Outfit),
		sleepOutfit:   r.one(spec.SleepOutfit),
		skin:          r.one(spec.Skin),
	}
	a.wornOutfit = a.defaultOutfit
	if a.level == 0 {
		a.level = 1
	}
	if spec.LevelMult != nil {
		a.levelMult = &LevelMult{Mult: spec.LevelMult.Mult, Min: spec.LevelMult.Min, Max: spec.LevelMult.Max}
	}
	for _, t := range a.templates {
		if !t.Is(form.TypeNPC) {
			r.errs = append(r.errs, fmt.Errorf("%s: template %s is not an npc", base, t))
		}
	}
	for _, item := range spec.Inventory {
		if f := r.one(item.Item); f != nil {
			count := item.Count
			if count <= 0 {
				count = 1
			}
			a.AddItems([]distribute.ItemCount{{Form: f, Count: count}})
		}
	}
	return a
}
