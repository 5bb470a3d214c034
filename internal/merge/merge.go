// Package merge remaps identifiers written against plugins that were later
// merged into another plugin.
package merge

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"formdist/internal/form"
)

var (
	ErrMissingMerged = errors.New("merge map missing required 'merged' field")
	ErrConflict      = errors.New("plugin is merged into more than one target")
)

// File is the on-disk form of one merge map.
type File struct {
	Merged  string                       `yaml:"merged"`
	Sources map[string]map[string]string `yaml:"sources"`
}

type source struct {
	target string
	ids    map[form.ID]form.ID
}

// Map implements form.Remapper. The zero value remaps nothing.
type Map struct {
	sources map[string]source
}

var _ form.Remapper = (*Map)(nil)

func New() *Map {
	return &Map{sources: make(map[string]source)}
}

// LoadFiles reads merge maps from paths, in order.
func LoadFiles(paths []string) (*Map, error) {
	m := New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read merge map: %w", err)
		}
		if err := m.Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return m, nil
}

// Parse adds the mappings of one YAML merge map.
func (m *Map) Parse(content []byte) error {
	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("parse merge map: %w", err)
	}
	return m.Add(file)
}

func (m *Map) Add(file File) error {
	merged := strings.TrimSpace(file.Merged)
	if merged == "" {
		return ErrMissingMerged
	}
	if m.sources == nil {
		m.sources = make(map[string]source)
	}
	for name, table := range file.Sources {
		key := strings.ToLower(strings.TrimSpace(name))
		if existing, ok := m.sources[key]; ok && !strings.EqualFold(existing.target, merged) {
			return fmt.Errorf("%w: %s -> %s, %s", ErrConflict, name, existing.target, merged)
		}
		src, ok := m.sources[key]
		if !ok {
			src = source{target: merged, ids: make(map[form.ID]form.ID, len(table))}
		}
		for oldHex, newHex := range table {
			oldID, err := parseHex(oldHex)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			newID, err := parseHex(newHex)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			src.ids[oldID] = newID
		}
		m.sources[key] = src
	}
	return nil
}

// Remap rewrites (file, id) when file was merged. Ids without a table entry
// keep their local id in the merged plugin.
func (m *Map) Remap(file string, id form.ID) (string, form.ID) {
	if m == nil || file == "" {
		return file, id
	}
	src, ok := m.sources[strings.ToLower(file)]
	if !ok {
		return file, id
	}
	if id == 0 {
		return src.target, id
	}
	if mapped, ok := src.ids[id.LocalID()]; ok {
		return src.target, mapped
	}
	return src.target, id
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sources)
}

func parseHex(s string) (form.ID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("form id %q: %w", s, err)
	}
	return form.ID(value), nil
}
