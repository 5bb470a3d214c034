package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyIdentifier = errors.New("empty identifier")

// Identifier is an unresolved reference written by a rule or world author:
// a form id with an optional plugin, a plugin on its own, or an editor ID.
type Identifier struct {
	FormID   ID
	File     string
	EditorID string
}

func FormKey(id ID, file string) Identifier {
	return Identifier{FormID: id, File: file}
}

func FileKey(file string) Identifier {
	return Identifier{File: file}
}

func EditorKey(editorID string) Identifier {
	return Identifier{EditorID: editorID}
}

func (i Identifier) IsZero() bool {
	return i.FormID == 0 && i.File == "" && i.EditorID == ""
}

func (i Identifier) IsEditorID() bool {
	return i.FormID == 0 && i.File == "" && i.EditorID != ""
}

func (i Identifier) IsFileOnly() bool {
	return i.FormID == 0 && i.File != ""
}

func (i Identifier) String() string {
	switch {
	case i.FormID != 0 && i.File != "":
		return fmt.Sprintf("0x%X~%s", uint32(i.FormID), i.File)
	case i.FormID != 0:
		return fmt.Sprintf("0x%X", uint32(i.FormID))
	case i.File != "":
		return i.File
	default:
		return i.EditorID
	}
}

// ParseIdentifier accepts "0x800~Plugin.esp", "0x800", "Plugin.esp" or an
// editor ID.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identifier{}, ErrEmptyIdentifier
	}

	if idPart, file, ok := strings.Cut(s, "~"); ok {
		id, err := parseFormID(idPart)
		if err != nil {
			return Identifier{}, err
		}
		file = strings.TrimSpace(file)
		if file == "" {
			return Identifier{}, fmt.Errorf("identifier %q: missing plugin after '~'", s)
		}
		return FormKey(id, file), nil
	}

	if hasHexPrefix(s) {
		id, err := parseFormID(s)
		if err != nil {
			return Identifier{}, err
		}
		return FormKey(id, ""), nil
	}

	if isPluginName(s) {
		return FileKey(s), nil
	}

	return EditorKey(s), nil
}

func parseFormID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if !hasHexPrefix(s) {
		return 0, fmt.Errorf("form id %q: expected 0x prefix", s)
	}
	value, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("form id %q: %w", s, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("form id %q: zero is not a valid id", s)
	}
	return ID(value), nil
}

func hasHexPrefix(s string) bool {
	return len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isPluginName(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasSuffix(lower, ".esp") || strings.HasSuffix(lower, ".esm") || strings.HasSuffix(lower, ".esl")
}

func (i Identifier) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// UnmarshalYAML reads the raw scalar so hex ids are not decoded as integers.
func (i *Identifier) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: identifier must be a scalar", node.Line)
	}
	parsed, err := ParseIdentifier(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*i = parsed
	return nil
}

func (i Identifier) MarshalYAML() (any, error) {
	return i.String(), nil
}
