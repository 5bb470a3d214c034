package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"formdist/internal/dryrun"
	"formdist/internal/lookup"
	"formdist/internal/parser"
	"formdist/internal/ruleset"
	"formdist/internal/store"
	"formdist/internal/world"
)

const worldYAML = `plugin: Skyrim.esm
forms:
  - {id: 0x13746, editor_id: NordRace, type: race}
  - {id: 0x13795, editor_id: Guard, type: keyword}
  - {id: 0x12EB7, editor_id: IronSword, type: weapon}
actors:
  - {id: 0x1A66B, editor_id: WhiterunGuard, name: Whiterun Guard, race: NordRace, level: 15, keywords: [Guard]}
  - {id: 0x1A66D, editor_id: Bandit, name: Bandit, race: NordRace, level: 15}
`

const rulesYAML = `rules:
  - {type: keyword, form: EliteGuard, strings: {match: [Guard]}, level: {min: 10}}
  - {type: item, form: IronSword, count: 3, chance: 100}
`

type mockQuerier struct {
	actor        *store.Actor
	actorErr     error
	searchResult []store.SearchResult
	runs         []store.Run
	grants       []store.Grant

	lastActorID     string
	lastSearchQuery string
	lastSearchType  string
	lastGrantsRun   uuid.UUID
	lastGrantsActor string
}

func (m *mockQuerier) GetActor(ctx context.Context, editorID string) (*store.Actor, error) {
	m.lastActorID = editorID
	return m.actor, m.actorErr
}

func (m *mockQuerier) Search(ctx context.Context, query, formType string) ([]store.SearchResult, error) {
	m.lastSearchQuery = query
	m.lastSearchType = formType
	return m.searchResult, nil
}

func (m *mockQuerier) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockQuerier) ListGrants(ctx context.Context, runID uuid.UUID, actor string) ([]store.Grant, error) {
	m.lastGrantsRun = runID
	m.lastGrantsActor = actor
	return m.grants, nil
}

func testServer(t *testing.T, db Querier) *Server {
	t.Helper()
	doc, err := parser.Parse([]byte(worldYAML))
	if err != nil {
		t.Fatalf("parsing world: %v", err)
	}
	w, err := world.Load([]string{"Skyrim.esm"}, []*parser.Document{doc})
	if err != nil {
		t.Fatalf("loading world: %v", err)
	}
	records, err := ruleset.Parse([]byte(rulesYAML), "Guards_DISTR.yaml")
	if err != nil {
		t.Fatalf("parsing rules: %v", err)
	}
	tables, diags := lookup.Run(w, nil, records, nil, nil)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %v", diags)
	}
	return NewServer(db, dryrun.New(w, tables, nil, nil), "test")
}

func TestRuleCounts(t *testing.T) {
	server := testServer(t, &mockQuerier{})

	_, output, err := server.handleRuleCounts(context.Background(), nil, RuleCountsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Total != 2 || output.Leveled != 1 {
		t.Fatalf("unexpected totals: %+v", output)
	}
	if len(output.Categories) != len(lookup.All) {
		t.Fatalf("expected every category, got %d", len(output.Categories))
	}
	if output.Categories[0].Category != "keyword" || output.Categories[0].Entries != 1 {
		t.Fatalf("unexpected keyword count: %+v", output.Categories[0])
	}
}

func TestListRules(t *testing.T) {
	server := testServer(t, &mockQuerier{})

	_, output, err := server.handleListRules(context.Background(), nil, ListRulesInput{Category: "item"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %+v", output)
	}
	rule := output.Rules[0]
	if rule.Form != "IronSword" || rule.Count != 3 || rule.Type != "weapon" || rule.Path != "Guards_DISTR.yaml" {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if rule.Chance == nil || *rule.Chance != 100 {
		t.Fatalf("expected chance 100, got %v", rule.Chance)
	}

	_, leveled, err := server.handleListRules(context.Background(), nil, ListRulesInput{Category: "item", Leveled: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leveled.Rules) != 0 {
		t.Fatalf("expected no leveled item rules, got %+v", leveled.Rules)
	}

	if _, _, err := server.handleListRules(context.Background(), nil, ListRulesInput{Category: "weather"}); err == nil {
		t.Fatalf("expected error for an unknown category")
	}
}

func TestGetActor(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &mockQuerier{actor: &store.Actor{
			FormSummary: store.FormSummary{Plugin: "Skyrim.esm", LocalID: 0x1A66B, EditorID: "WhiterunGuard", FormType: "npc", Name: "Whiterun Guard"},
			SourceFile:  "world/skyrim.yaml",
			Record:      map[string]any{"level": float64(15)},
		}}
		server := testServer(t, db)

		_, output, err := server.handleGetActor(context.Background(), nil, GetActorInput{EditorID: "whiterunguard"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.LocalID != "0x0001A66B" || output.Record["level"] != float64(15) {
			t.Fatalf("unexpected actor output: %+v", output)
		}
		if db.lastActorID != "whiterunguard" {
			t.Fatalf("unexpected lookup %q", db.lastActorID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := testServer(t, &mockQuerier{})
		if _, _, err := server.handleGetActor(context.Background(), nil, GetActorInput{EditorID: "Missing"}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("store error", func(t *testing.T) {
		server := testServer(t, &mockQuerier{actorErr: errors.New("closed")})
		if _, _, err := server.handleGetActor(context.Background(), nil, GetActorInput{EditorID: "Bandit"}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestSearchForms(t *testing.T) {
	db := &mockQuerier{searchResult: []store.SearchResult{{
		FormSummary: store.FormSummary{Plugin: "Skyrim.esm", LocalID: 0x12EB7, EditorID: "IronSword", FormType: "weapon"},
		Score:       2.5,
	}}}
	server := testServer(t, db)

	_, output, err := server.handleSearchForms(context.Background(), nil, SearchFormsInput{Query: "iron", Type: "weapon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Results) != 1 || output.Results[0].EditorID != "IronSword" {
		t.Fatalf("unexpected search output: %+v", output)
	}
	if db.lastSearchQuery != "iron" || db.lastSearchType != "weapon" {
		t.Fatalf("unexpected search params")
	}
}

func TestPreviewDistribution(t *testing.T) {
	server := testServer(t, &mockQuerier{})

	_, output, err := server.handlePreviewDistribution(context.Background(), nil, PreviewDistributionInput{Actor: "WhiterunGuard"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Applied != 2 || len(output.Outcomes) != 2 {
		t.Fatalf("unexpected preview: %+v", output)
	}
	if output.Outcomes[0].Form != "EliteGuard" || output.Outcomes[1].Count != 3 {
		t.Fatalf("unexpected outcomes: %+v", output.Outcomes)
	}

	_, bandit, err := server.handlePreviewDistribution(context.Background(), nil, PreviewDistributionInput{Actor: "0x1A66D~Skyrim.esm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bandit.Actor != "Bandit" || bandit.Applied != 1 {
		t.Fatalf("unexpected bandit preview: %+v", bandit)
	}

	if _, _, err := server.handlePreviewDistribution(context.Background(), nil, PreviewDistributionInput{}); err == nil {
		t.Fatalf("expected error without an actor")
	}
}

func TestListGrants(t *testing.T) {
	latest := uuid.New()
	db := &mockQuerier{
		runs:   []store.Run{{ID: latest}},
		grants: []store.Grant{{RunID: latest, Actor: "Bandit", Category: "item", Form: "IronSword", Count: 3, Status: "applied"}},
	}
	server := testServer(t, db)

	_, output, err := server.handleListGrants(context.Background(), nil, ListGrantsInput{Actor: "Bandit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.RunID != latest.String() || len(output.Grants) != 1 {
		t.Fatalf("unexpected grants output: %+v", output)
	}
	if db.lastGrantsRun != latest || db.lastGrantsActor != "Bandit" {
		t.Fatalf("unexpected grants params")
	}

	explicit := uuid.New()
	if _, _, err := server.handleListGrants(context.Background(), nil, ListGrantsInput{RunID: explicit.String()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.lastGrantsRun != explicit {
		t.Fatalf("expected the explicit run id")
	}

	if _, _, err := server.handleListGrants(context.Background(), nil, ListGrantsInput{RunID: "nope"}); err == nil {
		t.Fatalf("expected error for a bad run id")
	}

	empty := testServer(t, &mockQuerier{})
	if _, _, err := empty.handleListGrants(context.Background(), nil, ListGrantsInput{}); err == nil {
		t.Fatalf("expected error without runs")
	}
}
