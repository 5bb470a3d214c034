package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"formdist/internal/distribute"
	"formdist/internal/dryrun"
	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/store"
)

type RuleCountsInput struct{}

type ListRulesInput struct {
	Category string `json:"category" jsonschema:"rule category, e.g. keyword, item, outfit"`
	Leveled  bool   `json:"leveled,omitempty" jsonschema:"only rules with a level filter"`
}

type GetActorInput struct {
	EditorID string `json:"editor_id" jsonschema:"actor editor id"`
}

type SearchFormsInput struct {
	Query string `json:"query" jsonschema:"search terms, prefix matched; -term excludes"`
	Type  string `json:"type,omitempty" jsonschema:"restrict to a form type"`
}

type PreviewDistributionInput struct {
	Actor       string `json:"actor" jsonschema:"actor editor id or form id"`
	PlayerLevel uint16 `json:"player_level,omitempty" jsonschema:"player level to evaluate at"`
	OnlyLeveled bool   `json:"only_leveled,omitempty" jsonschema:"run a level-up pass"`
	Death       bool   `json:"death,omitempty" jsonschema:"also grant death items"`
}

type ListGrantsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run id; defaults to the latest run"`
	Actor string `json:"actor,omitempty" jsonschema:"actor editor id filter"`
}

type CategoryCountOutput struct {
	Category string `json:"category"`
	Entries  int    `json:"entries"`
	Leveled  int    `json:"leveled"`
}

type RuleCountsOutput struct {
	Total      int                   `json:"total"`
	Leveled    int                   `json:"leveled"`
	Categories []CategoryCountOutput `json:"categories"`
}

type RuleOutput struct {
	Index  uint32   `json:"index"`
	Form   string   `json:"form"`
	Type   string   `json:"type"`
	Path   string   `json:"path"`
	Count  int32    `json:"count"`
	Chance *float64 `json:"chance,omitempty"`
}

type ListRulesOutput struct {
	Rules []RuleOutput `json:"rules"`
}

type ActorOutput struct {
	Plugin     string         `json:"plugin"`
	LocalID    string         `json:"local_id"`
	EditorID   string         `json:"editor_id"`
	Name       string         `json:"name"`
	SourceFile string         `json:"source_file"`
	Record     map[string]any `json:"record"`
}

type SearchResultOutput struct {
	Plugin   string  `json:"plugin"`
	LocalID  string  `json:"local_id"`
	EditorID string  `json:"editor_id"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

type SearchFormsOutput struct {
	Results []SearchResultOutput `json:"results"`
}

type OutcomeOutput struct {
	Category string `json:"category"`
	Form     string `json:"form"`
	Count    int32  `json:"count"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Path     string `json:"path"`
}

type PreviewDistributionOutput struct {
	Actor       string          `json:"actor"`
	Level       uint16          `json:"level"`
	Applied     int             `json:"applied"`
	LevelCapped bool            `json:"level_capped,omitempty"`
	Outcomes    []OutcomeOutput `json:"outcomes"`
}

type GrantOutput struct {
	Actor    string `json:"actor"`
	ActorID  string `json:"actor_id"`
	Category string `json:"category"`
	Form     string `json:"form"`
	Count    int32  `json:"count"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Path     string `json:"path"`
}

type ListGrantsOutput struct {
	RunID  string        `json:"run_id"`
	Grants []GrantOutput `json:"grants"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "rule_counts",
		Description: "Count resolved rules per category",
	}, s.handleRuleCounts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_rules",
		Description: "List the resolved rules of one category in evaluation order",
	}, s.handleListRules)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_actor",
		Description: "Retrieve an actor record from the world catalog",
	}, s.handleGetActor)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_forms",
		Description: "Search forms by editor id and name",
	}, s.handleSearchForms)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "preview_distribution",
		Description: "Show what the rules would give one actor, without changing the world",
	}, s.handlePreviewDistribution)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_grants",
		Description: "List the grants recorded by a distribution run",
	}, s.handleListGrants)
}

func (s *Server) handleRuleCounts(ctx context.Context, req *sdk.CallToolRequest, input RuleCountsInput) (*sdk.CallToolResult, RuleCountsOutput, error) {
	tables := s.runner.Tables()
	output := RuleCountsOutput{
		Total:      tables.TotalRuleCount(),
		Leveled:    tables.TotalLeveledRuleCount(),
		Categories: make([]CategoryCountOutput, 0, len(lookup.All)),
	}
	for _, c := range lookup.All {
		collection := tables.Get(c)
		output.Categories = append(output.Categories, CategoryCountOutput{
			Category: c.String(),
			Entries:  collection.Len(),
			Leveled:  collection.LeveledLen(),
		})
	}
	return nil, output, nil
}

func (s *Server) handleListRules(ctx context.Context, req *sdk.CallToolRequest, input ListRulesInput) (*sdk.CallToolResult, ListRulesOutput, error) {
	if input.Category == "" {
		return nil, ListRulesOutput{}, fmt.Errorf("category is required")
	}
	c, ok := lookup.ParseCategory(input.Category)
	if !ok {
		return nil, ListRulesOutput{}, fmt.Errorf("unknown category: %s", input.Category)
	}

	entries := s.runner.Tables().Get(c).Entries(input.Leveled)
	output := make([]RuleOutput, 0, len(entries))
	for _, entry := range entries {
		output = append(output, RuleOutput{
			Index:  entry.Index,
			Form:   formName(entry.Form),
			Type:   entry.Form.Type.String(),
			Path:   entry.Path,
			Count:  entry.IdxOrCount,
			Chance: entry.Filters.Chance,
		})
	}
	return nil, ListRulesOutput{Rules: output}, nil
}

func (s *Server) handleGetActor(ctx context.Context, req *sdk.CallToolRequest, input GetActorInput) (*sdk.CallToolResult, ActorOutput, error) {
	if input.EditorID == "" {
		return nil, ActorOutput{}, fmt.Errorf("editor_id is required")
	}
	actor, err := s.db.GetActor(ctx, input.EditorID)
	if err != nil {
		return nil, ActorOutput{}, err
	}
	if actor == nil {
		return nil, ActorOutput{}, fmt.Errorf("actor not found")
	}
	return nil, ActorOutput{
		Plugin:     actor.Plugin,
		LocalID:    form.ID(actor.LocalID).String(),
		EditorID:   actor.EditorID,
		Name:       actor.Name,
		SourceFile: actor.SourceFile,
		Record:     actor.Record,
	}, nil
}

func (s *Server) handleSearchForms(ctx context.Context, req *sdk.CallToolRequest, input SearchFormsInput) (*sdk.CallToolResult, SearchFormsOutput, error) {
	if input.Query == "" {
		return nil, SearchFormsOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.db.Search(ctx, input.Query, input.Type)
	if err != nil {
		return nil, SearchFormsOutput{}, err
	}

	output := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		output = append(output, SearchResultOutput{
			Plugin:   r.Plugin,
			LocalID:  form.ID(r.LocalID).String(),
			EditorID: r.EditorID,
			Type:     r.FormType,
			Name:     r.Name,
			Score:    r.Score,
		})
	}
	return nil, SearchFormsOutput{Results: output}, nil
}

func (s *Server) handlePreviewDistribution(ctx context.Context, req *sdk.CallToolRequest, input PreviewDistributionInput) (*sdk.CallToolResult, PreviewDistributionOutput, error) {
	if input.Actor == "" {
		return nil, PreviewDistributionOutput{}, fmt.Errorf("actor is required")
	}
	id, err := form.ParseIdentifier(input.Actor)
	if err != nil {
		return nil, PreviewDistributionOutput{}, err
	}

	actor, result, err := s.runner.Preview(id, dryrun.Options{
		PlayerLevel: input.PlayerLevel,
		OnlyLeveled: input.OnlyLeveled,
		Death:       input.Death,
	})
	if err != nil {
		return nil, PreviewDistributionOutput{}, err
	}

	output := PreviewDistributionOutput{
		Actor:       actor.EditorID(),
		Level:       actor.Level(),
		Applied:     result.Applied(),
		LevelCapped: result.LevelCapped,
		Outcomes:    make([]OutcomeOutput, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		output.Outcomes = append(output.Outcomes, outcomeOutput(o))
	}
	return nil, output, nil
}

func (s *Server) handleListGrants(ctx context.Context, req *sdk.CallToolRequest, input ListGrantsInput) (*sdk.CallToolResult, ListGrantsOutput, error) {
	var runID uuid.UUID
	if input.RunID != "" {
		parsed, err := uuid.Parse(input.RunID)
		if err != nil {
			return nil, ListGrantsOutput{}, fmt.Errorf("invalid run_id: %w", err)
		}
		runID = parsed
	} else {
		runs, err := s.db.ListRuns(ctx, 1)
		if err != nil {
			return nil, ListGrantsOutput{}, err
		}
		if len(runs) == 0 {
			return nil, ListGrantsOutput{}, fmt.Errorf("no distribution runs recorded")
		}
		runID = runs[0].ID
	}

	grants, err := s.db.ListGrants(ctx, runID, input.Actor)
	if err != nil {
		return nil, ListGrantsOutput{}, err
	}
	output := make([]GrantOutput, 0, len(grants))
	for _, g := range grants {
		output = append(output, grantOutput(g))
	}
	return nil, ListGrantsOutput{RunID: runID.String(), Grants: output}, nil
}

func outcomeOutput(o distribute.Outcome) OutcomeOutput {
	return OutcomeOutput{
		Category: o.Category.String(),
		Form:     formName(o.Form),
		Count:    o.Count,
		Status:   o.Status.String(),
		Reason:   o.Reason,
		Path:     o.Path,
	}
}

func grantOutput(g store.Grant) GrantOutput {
	return GrantOutput{
		Actor:    g.Actor,
		ActorID:  g.ActorID,
		Category: g.Category,
		Form:     g.Form,
		Count:    g.Count,
		Status:   g.Status,
		Reason:   g.Reason,
		Path:     g.Path,
	}
}

func formName(f *form.Form) string {
	if f == nil {
		return ""
	}
	if f.EditorID != "" {
		return f.EditorID
	}
	return f.ID.String()
}
