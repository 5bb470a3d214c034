package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"formdist/internal/form"
	"formdist/internal/npc"
)

// Document is one world file: the forms and characters a single plugin
// defines.
type Document struct {
	Plugin     string      `yaml:"plugin" json:"plugin"`
	Forms      []FormSpec  `yaml:"forms" json:"forms,omitempty"`
	Actors     []ActorSpec `yaml:"actors" json:"actors,omitempty"`
	SourceFile string      `yaml:"-" json:"-"`
}

type FormSpec struct {
	ID       form.Identifier   `yaml:"id" json:"id"`
	EditorID string            `yaml:"editor_id" json:"editor_id,omitempty"`
	Type     string            `yaml:"type" json:"type"`
	Members  []form.Identifier `yaml:"members" json:"members,omitempty"`
	Addons   []form.Identifier `yaml:"addons" json:"addons,omitempty"`
	Races    []form.Identifier `yaml:"races" json:"races,omitempty"`
}

type LevelMult struct {
	Mult float64 `yaml:"mult" json:"mult"`
	Min  uint16  `yaml:"min" json:"min,omitempty"`
	Max  uint16  `yaml:"max" json:"max,omitempty"`
}

type ItemSpec struct {
	Item  form.Identifier `yaml:"item" json:"item"`
	Count int32           `yaml:"count" json:"count"`
}

type ActorSpec struct {
	ID            form.Identifier   `yaml:"id" json:"id"`
	EditorID      string            `yaml:"editor_id" json:"editor_id,omitempty"`
	Name          string            `yaml:"name" json:"name,omitempty"`
	Race          form.Identifier   `yaml:"race" json:"race,omitzero"`
	Level         uint16            `yaml:"level" json:"level,omitempty"`
	LevelMult     *LevelMult        `yaml:"level_mult" json:"level_mult,omitempty"`
	Sex           string            `yaml:"sex" json:"sex,omitempty"`
	Unique        bool              `yaml:"unique" json:"unique,omitempty"`
	Summonable    bool              `yaml:"summonable" json:"summonable,omitempty"`
	Child         bool              `yaml:"child" json:"child,omitempty"`
	Teammate      bool              `yaml:"teammate" json:"teammate,omitempty"`
	Templates     []form.Identifier `yaml:"templates" json:"templates,omitempty"`
	Keywords      []form.Identifier `yaml:"keywords" json:"keywords,omitempty"`
	Factions      []form.Identifier `yaml:"factions" json:"factions,omitempty"`
	Spells        []form.Identifier `yaml:"spells" json:"spells,omitempty"`
	LeveledSpells []form.Identifier `yaml:"leveled_spells" json:"leveled_spells,omitempty"`
	Perks         []form.Identifier `yaml:"perks" json:"perks,omitempty"`
	Shouts        []form.Identifier `yaml:"shouts" json:"shouts,omitempty"`
	Packages      []form.Identifier `yaml:"packages" json:"packages,omitempty"`
	Inventory     []ItemSpec        `yaml:"inventory" json:"inventory,omitempty"`
	Class         form.Identifier   `yaml:"class" json:"class,omitzero"`
	CombatStyle   form.Identifier   `yaml:"combat_style" json:"combat_style,omitzero"`
	VoiceType     form.Identifier   `yaml:"voice_type" json:"voice_type,omitzero"`
	Location      form.Identifier   `yaml:"location" json:"location,omitzero"`
	Outfit        form.Identifier   `yaml:"outfit" json:"outfit,omitzero"`
	SleepOutfit   form.Identifier   `yaml:"sleep_outfit" json:"sleep_outfit,omitzero"`
	Skin          form.Identifier   `yaml:"skin" json:"skin,omitzero"`
}

var (
	ErrEmptyDocument = errors.New("world document is empty")
	ErrInvalidYAML   = errors.New("invalid YAML in world document")
	ErrMissingPlugin = errors.New("world document missing required 'plugin' field")
	ErrMissingID     = errors.New("record missing required 'id' field")
	ErrMissingType   = errors.New("form missing required 'type' field")
	ErrForeignID     = errors.New("record id belongs to another plugin")
)

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}

	var doc Document
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	doc.Plugin = strings.TrimSpace(doc.Plugin)
	if doc.Plugin == "" {
		return nil, ErrMissingPlugin
	}

	for i, spec := range doc.Forms {
		if err := checkID(doc.Plugin, spec.ID); err != nil {
			return nil, fmt.Errorf("forms[%d]: %w", i, err)
		}
		if strings.TrimSpace(spec.Type) == "" {
			return nil, fmt.Errorf("forms[%d] %s: %w", i, spec.ID, ErrMissingType)
		}
		if _, err := form.ParseType(spec.Type); err != nil {
			return nil, fmt.Errorf("forms[%d]: %w", i, err)
		}
	}
	for i, spec := range doc.Actors {
		if err := checkID(doc.Plugin, spec.ID); err != nil {
			return nil, fmt.Errorf("actors[%d]: %w", i, err)
		}
		if _, err := npc.ParseSex(spec.Sex); err != nil {
			return nil, fmt.Errorf("actors[%d] %s: %w", i, spec.ID, err)
		}
	}

	return &doc, nil
}

// checkID requires a form id owned by the document's plugin. The plugin part
// may be omitted.
func checkID(plugin string, id form.Identifier) error {
	if id.FormID == 0 {
		return ErrMissingID
	}
	if id.File != "" && !strings.EqualFold(id.File, plugin) {
		return fmt.Errorf("%w: %s in %s", ErrForeignID, id, plugin)
	}
	return nil
}
