// Package ruleset reads distribution rule files.
//
// A rule file is a YAML document whose name ends in _DISTR.yaml (or .yml):
//
//	rules:
//	  - type: keyword
//	    form: EliteGuardKeyword
//	    strings: {match: [Guard], not: [Bandit]}
//	    forms: {all: ["0x13746~Skyrim.esm"]}
//	    level: {min: 10, max: 20}
//	    traits: {sex: male, unique: false}
//	    chance: 50
//
// Items take a count, packages an index. Both default as the host would:
// one item, insertion at the front.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/npc"
)

const fileSuffix = "_distr"

var (
	ErrInvalidYAML      = errors.New("invalid YAML in rule file")
	ErrUnknownCategory  = errors.New("unknown rule type")
	ErrMissingForm      = errors.New("rule missing required 'form' field")
	ErrInvalidChance    = errors.New("chance must be between 0 and 100")
	ErrInvalidLevel     = errors.New("level min is greater than max")
	ErrCountAndIndex    = errors.New("rule sets both 'count' and 'index'")
	ErrIndexNotAccepted = errors.New("'index' is only valid for package rules")
	ErrCountNotAccepted = errors.New("'count' is only valid for item rules")
)

type File struct {
	Rules []Rule `yaml:"rules"`
}

type Rule struct {
	Type    string          `yaml:"type"`
	Form    form.Identifier `yaml:"form"`
	Strings StringFilters   `yaml:"strings"`
	Forms   FormFilters     `yaml:"forms"`
	Level   *Level          `yaml:"level"`
	Traits  Traits          `yaml:"traits"`
	Count   *int32          `yaml:"count"`
	Index   *int32          `yaml:"index"`
	Chance  *float64        `yaml:"chance"`
}

type StringFilters struct {
	All   []string `yaml:"all"`
	Not   []string `yaml:"not"`
	Match []string `yaml:"match"`
	Any   []string `yaml:"any"`
}

type FormFilters struct {
	All   []form.Identifier `yaml:"all"`
	Not   []form.Identifier `yaml:"not"`
	Match []form.Identifier `yaml:"match"`
}

type Level struct {
	Min *uint16 `yaml:"min"`
	Max *uint16 `yaml:"max"`
}

type Traits struct {
	Sex        string          `yaml:"sex"`
	Unique     *bool           `yaml:"unique"`
	Summonable *bool           `yaml:"summonable"`
	Child      *bool           `yaml:"child"`
	Leveled    *bool           `yaml:"leveled"`
	Teammate   *bool           `yaml:"teammate"`
	Race       form.Identifier `yaml:"race"`
}

// Result holds the records of every readable file. A file with a bad rule
// is skipped as a whole and reported in Errors.
type Result struct {
	Records map[lookup.Category][]lookup.RawRecord
	Files   []string
	Errors  []error
}

func (r *Result) Count() int {
	n := 0
	for _, records := range r.Records {
		n += len(records)
	}
	return n
}

// Load reads every rule file under roots in lexical path order. Each record
// carries the slash-separated path of its file, so reverse provenance order
// is reverse load order.
func Load(roots []string, excludes []string) (*Result, error) {
	paths, err := Files(roots, excludes)
	if err != nil {
		return nil, err
	}
	result := &Result{Records: make(map[lookup.Category][]lookup.RawRecord)}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		records, err := Parse(content, path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		for c, list := range records {
			result.Records[c] = append(result.Records[c], list...)
		}
		result.Files = append(result.Files, path)
	}
	return result, nil
}

// Parse converts one rule file. provenance becomes the Path of every record.
func Parse(content []byte, provenance string) (map[lookup.Category][]lookup.RawRecord, error) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	out := make(map[lookup.Category][]lookup.RawRecord)
	for i, rule := range file.Rules {
		c, record, err := rule.record(provenance)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		out[c] = append(out[c], record)
	}
	return out, nil
}

func (r Rule) record(provenance string) (lookup.Category, lookup.RawRecord, error) {
	c, ok := lookup.ParseCategory(strings.ToLower(strings.TrimSpace(r.Type)))
	if !ok {
		return 0, lookup.RawRecord{}, fmt.Errorf("%w: %q", ErrUnknownCategory, r.Type)
	}
	if r.Form.IsZero() {
		return 0, lookup.RawRecord{}, ErrMissingForm
	}
	if r.Chance != nil && (math.IsNaN(*r.Chance) || *r.Chance < 0 || *r.Chance > 100) {
		return 0, lookup.RawRecord{}, fmt.Errorf("%w: %v", ErrInvalidChance, *r.Chance)
	}
	sex, err := npc.ParseSex(r.Traits.Sex)
	if err != nil {
		return 0, lookup.RawRecord{}, err
	}
	idxOrCount, err := r.idxOrCount(c)
	if err != nil {
		return 0, lookup.RawRecord{}, err
	}

	record := lookup.RawRecord{
		Target: r.Form,
		Strings: filter.Strings{
			All:   r.Strings.All,
			Not:   r.Strings.Not,
			Match: r.Strings.Match,
			Any:   r.Strings.Any,
		},
		Forms: lookup.RawFormFilters{
			All:   r.Forms.All,
			Not:   r.Forms.Not,
			Match: r.Forms.Match,
		},
		Traits: lookup.RawTraits{
			Sex:        sex,
			Unique:     r.Traits.Unique,
			Summonable: r.Traits.Summonable,
			Child:      r.Traits.Child,
			Leveled:    r.Traits.Leveled,
			Teammate:   r.Traits.Teammate,
			Race:       r.Traits.Race,
		},
		IdxOrCount: idxOrCount,
		Chance:     r.Chance,
		Path:       provenance,
	}
	if r.Level != nil {
		if r.Level.Min != nil && r.Level.Max != nil && *r.Level.Min > *r.Level.Max {
			return 0, lookup.RawRecord{}, fmt.Errorf("%w: %d > %d", ErrInvalidLevel, *r.Level.Min, *r.Level.Max)
		}
		record.Level = filter.LevelRange{Min: r.Level.Min, Max: r.Level.Max}
	}
	return c, record, nil
}

func (r Rule) idxOrCount(c lookup.Category) (int32, error) {
	switch {
	case r.Count != nil && r.Index != nil:
		return 0, ErrCountAndIndex
	case r.Index != nil:
		if c != lookup.Package {
			return 0, ErrIndexNotAccepted
		}
		return *r.Index, nil
	case r.Count != nil:
		if c != lookup.Item && c != lookup.DeathItem {
			return 0, ErrCountNotAccepted
		}
		return *r.Count, nil
	case c == lookup.Package:
		return 0, nil
	default:
		return 1, nil
	}
}

// Files lists rule files under roots as slash-separated paths in lexical
// order.
func Files(roots []string, excludes []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		err := filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isExcluded(path, excludes) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !IsRuleFile(d.Name()) {
				return nil
			}
			files = append(files, filepath.ToSlash(path))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

// IsRuleFile reports whether name is a rule file name, ignoring case.
func IsRuleFile(name string) bool {
	lower := strings.ToLower(name)
	ext := filepath.Ext(lower)
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(lower, ext), fileSuffix)
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == "" {
			continue
		}
		exclude = filepath.Clean(exclude)
		if clean == exclude || strings.HasPrefix(clean, exclude+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
