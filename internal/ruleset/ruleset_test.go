package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/npc"
	"formdist/internal/parser"
	"formdist/internal/world"
)

func TestParse(t *testing.T) {
	content := []byte(`rules:
  - type: keyword
    form: EliteGuardKeyword
    strings: {all: [Guard], any: [Whiterun]}
    forms: {match: ["Skyrim.esm", "0x13746~Skyrim.esm"]}
    level: {min: 10, max: 20}
    traits: {sex: male, teammate: false}
    chance: 25
  - type: item
    form: IronSword
  - type: package
    form: PatrolPackage
  - type: Leveled_Spell
    form: FireballList
`)
	records, err := Parse(content, "Guards_DISTR.yaml")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	kw := records[lookup.Keyword]
	if len(kw) != 1 {
		t.Fatalf("expected 1 keyword record, got %d", len(kw))
	}
	r := kw[0]
	if r.Target != form.EditorKey("EliteGuardKeyword") {
		t.Errorf("unexpected target %s", r.Target)
	}
	if r.Path != "Guards_DISTR.yaml" {
		t.Errorf("expected provenance Guards_DISTR.yaml, got %q", r.Path)
	}
	if len(r.Forms.Match) != 2 || !r.Forms.Match[0].IsFileOnly() || r.Forms.Match[1].FormID != 0x13746 {
		t.Errorf("unexpected form filters %+v", r.Forms.Match)
	}
	if r.Level.Min == nil || *r.Level.Min != 10 || r.Level.Max == nil || *r.Level.Max != 20 {
		t.Errorf("unexpected level %+v", r.Level)
	}
	if r.Traits.Sex != npc.SexMale || r.Traits.Teammate == nil || *r.Traits.Teammate {
		t.Errorf("unexpected traits %+v", r.Traits)
	}
	if r.Chance == nil || *r.Chance != 25 {
		t.Errorf("unexpected chance %v", r.Chance)
	}
	if r.IdxOrCount != 1 {
		t.Errorf("keyword records carry 1, got %d", r.IdxOrCount)
	}

	if got := records[lookup.Item][0].IdxOrCount; got != 1 {
		t.Errorf("item count defaults to 1, got %d", got)
	}
	if got := records[lookup.Package][0].IdxOrCount; got != 0 {
		t.Errorf("package index defaults to 0, got %d", got)
	}
	if len(records[lookup.LeveledSpell]) != 1 {
		t.Errorf("type names are case insensitive")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "invalid yaml", content: "rules: [", wantErr: ErrInvalidYAML},
		{name: "unknown type", content: "rules:\n  - {type: weather, form: Rain}\n", wantErr: ErrUnknownCategory},
		{name: "missing form", content: "rules:\n  - {type: keyword}\n", wantErr: ErrMissingForm},
		{name: "chance above 100", content: "rules:\n  - {type: spell, form: Fireball, chance: 120}\n", wantErr: ErrInvalidChance},
		{name: "chance not a number", content: "rules:\n  - {type: spell, form: Fireball, chance: .nan}\n", wantErr: ErrInvalidChance},
		{name: "inverted level", content: "rules:\n  - {type: spell, form: Fireball, level: {min: 20, max: 10}}\n", wantErr: ErrInvalidLevel},
		{name: "count and index", content: "rules:\n  - {type: package, form: Patrol, count: 1, index: 1}\n", wantErr: ErrCountAndIndex},
		{name: "index on item", content: "rules:\n  - {type: item, form: Sword, index: 1}\n", wantErr: ErrIndexNotAccepted},
		{name: "count on perk", content: "rules:\n  - {type: perk, form: Armsman, count: 2}\n", wantErr: ErrCountNotAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "Test_DISTR.yaml")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := Parse([]byte("rules:\n  - {type: spell, form: Fireball, traits: {sex: other}}\n"), "x"); err == nil {
		t.Fatalf("expected error for unknown sex")
	}
}

func TestLoad(t *testing.T) {
	root := filepath.Join("testdata", "rules")
	result, err := Load([]string{root}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("expected 2 rule files, got %v", result.Files)
	}
	if len(result.Errors) != 1 || !errors.Is(result.Errors[0], ErrUnknownCategory) {
		t.Fatalf("expected the broken file to be reported, got %v", result.Errors)
	}
	if result.Count() != 6 {
		t.Errorf("expected 6 records, got %d", result.Count())
	}

	packages := result.Records[lookup.Package]
	if len(packages) != 2 {
		t.Fatalf("expected 2 package records, got %d", len(packages))
	}
	if packages[0].Path != "testdata/rules/Guards_DISTR.yaml" || packages[0].IdxOrCount != 2 {
		t.Errorf("unexpected first package record %+v", packages[0])
	}
	if packages[1].Path != "testdata/rules/sub/Bandits_DISTR.yml" {
		t.Errorf("records follow lexical file order, got %q", packages[1].Path)
	}

	excluded, err := Load([]string{root}, []string{filepath.Join(root, "sub")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(excluded.Records[lookup.DeathItem]) != 0 {
		t.Errorf("excluded directory was read")
	}
}

func TestLoadNestedProvenance(t *testing.T) {
	root := t.TempDir()
	writeRuleFile(t, filepath.Join(root, "Zzz_DISTR.yaml"), "GuardOutfit")
	writeRuleFile(t, filepath.Join(root, "sub", "Aaa_DISTR.yaml"), "FineOutfit")
	writeRuleFile(t, filepath.Join(root, "sub", "Zzz_DISTR.yaml"), "RaggedOutfit")

	result, err := Load([]string{root}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	base := filepath.ToSlash(root)
	want := []string{base + "/Zzz_DISTR.yaml", base + "/sub/Aaa_DISTR.yaml", base + "/sub/Zzz_DISTR.yaml"}
	if !slices.Equal(result.Files, want) {
		t.Fatalf("unexpected load order %v", result.Files)
	}
	var paths []string
	for _, record := range result.Records[lookup.Outfit] {
		paths = append(paths, record.Path)
	}
	if !slices.Equal(paths, want) {
		t.Fatalf("records must carry their file path, got %v", paths)
	}

	doc, err := parser.Parse([]byte("plugin: Skyrim.esm\nforms:\n" +
		"  - {id: 0x1A002, editor_id: GuardOutfit, type: outfit}\n" +
		"  - {id: 0x1A005, editor_id: FineOutfit, type: outfit}\n" +
		"  - {id: 0x1A006, editor_id: RaggedOutfit, type: outfit}\n"))
	if err != nil {
		t.Fatalf("parsing world: %v", err)
	}
	w, err := world.Load([]string{"Skyrim.esm"}, []*parser.Document{doc})
	if err != nil {
		t.Fatalf("loading world: %v", err)
	}
	tables, diags := lookup.Run(w, nil, result.Records, nil, nil)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %v", diags)
	}
	var order []string
	for _, entry := range tables.Get(lookup.Outfit).Entries(false) {
		order = append(order, entry.Form.EditorID)
	}
	if !slices.Equal(order, []string{"RaggedOutfit", "FineOutfit", "GuardOutfit"}) {
		t.Fatalf("last loaded file must win, got %v", order)
	}
}

func writeRuleFile(t *testing.T, path, outfit string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	content := "rules:\n  - type: outfit\n    form: " + outfit + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing rule file: %v", err)
	}
}

func TestIsRuleFile(t *testing.T) {
	tests := map[string]bool{
		"Guards_DISTR.yaml": true,
		"guards_distr.YML":  true,
		"Guards_DISTR.ini":  false,
		"Guards.yaml":       false,
		"DISTR.yaml":        false,
	}
	for name, want := range tests {
		if got := IsRuleFile(name); got != want {
			t.Errorf("IsRuleFile(%q) = %v, want %v", name, got, want)
		}
	}
}
