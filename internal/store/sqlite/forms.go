package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"formdist/internal/store"
)

func (c *Client) ListForms(ctx context.Context, formType, plugin string) ([]store.FormSummary, error) {
	query := `
	SELECT plugin, local_id, editor_id, form_type, name
	FROM forms
	WHERE (? = '' OR form_type = ?)
	  AND (? = '' OR plugin_normalized = ?)
	ORDER BY plugin_normalized, local_id
	`

	plugin = strings.ToLower(plugin)
	rows, err := c.db.QueryContext(ctx, query, formType, formType, plugin, plugin)
	if err != nil {
		return nil, fmt.Errorf("listing forms: %w", err)
	}
	defer rows.Close()

	summaries := []store.FormSummary{}
	for rows.Next() {
		var s store.FormSummary
		var localID int64
		if err := rows.Scan(&s.Plugin, &localID, &s.EditorID, &s.FormType, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning form summary: %w", err)
		}
		s.LocalID = uint32(localID)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating form summaries: %w", err)
	}

	return summaries, nil
}

// GetActor returns the NPC record with the given editor ID, or nil when
// there is none.
func (c *Client) GetActor(ctx context.Context, editorID string) (*store.Actor, error) {
	query := `
	SELECT plugin, local_id, editor_id, form_type, name, source_file, record
	FROM forms
	WHERE editor_id_normalized = ?
	  AND form_type = 'npc'
	`

	rows, err := c.db.QueryContext(ctx, query, strings.ToLower(editorID))
	if err != nil {
		return nil, fmt.Errorf("getting actor: %w", err)
	}
	defer rows.Close()

	var actors []store.Actor
	for rows.Next() {
		var a store.Actor
		var localID int64
		var record string
		err := rows.Scan(&a.Plugin, &localID, &a.EditorID, &a.FormType, &a.Name, &a.SourceFile, &record)
		if err != nil {
			return nil, fmt.Errorf("scanning actor: %w", err)
		}
		a.LocalID = uint32(localID)
		if record != "" {
			if err := json.Unmarshal([]byte(record), &a.Record); err != nil {
				return nil, fmt.Errorf("unmarshaling actor record: %w", err)
			}
		}
		if a.Record == nil {
			a.Record = map[string]any{}
		}
		actors = append(actors, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actor rows: %w", err)
	}

	if len(actors) == 0 {
		return nil, nil
	}
	if len(actors) > 1 {
		return nil, fmt.Errorf("editor id %q is shared by %d actors", editorID, len(actors))
	}

	return &actors[0], nil
}

func (c *Client) Search(ctx context.Context, query, formType string) ([]store.SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, fmt.Errorf("query needs at least one search term")
	}

	sqlQuery := `
	SELECT f.plugin, f.local_id, f.editor_id, f.form_type, f.name,
		   bm25(forms_fts, 10.0, 4.0) AS score
	FROM forms_fts
	JOIN forms f ON forms_fts.rowid = f.id
	WHERE forms_fts MATCH ?
	  AND (? = '' OR f.form_type = ?)
	ORDER BY score ASC, f.editor_id ASC
	LIMIT 50
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, match, formType, formType)
	if err != nil {
		return nil, fmt.Errorf("searching forms: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var localID int64
		err := rows.Scan(&r.Plugin, &localID, &r.EditorID, &r.FormType, &r.Name, &r.Score)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.LocalID = uint32(localID)
		// bm25 ranks better matches lower
		r.Score = -r.Score
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}
