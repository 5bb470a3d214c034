package postgres

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
WHERE ($1 = '' OR form_type = $1)
  AND ($2 = '' OR plugin_normalized = $2)
ORDER BY plugin_normalized, local_id
`

	rows, err := c.pool.Query(ctx, query, formType, strings.ToLower(plugin))
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

func (c *Client) GetActor(ctx context.Context, editorID string) (*store.Actor, error) {
	query := `
SELECT plugin, local_id, editor_id, form_type, name, source_file, record
FROM forms
WHERE editor_id_normalized = $1
  AND form_type = 'npc'
`

	rows, err := c.pool.Query(ctx, query, strings.ToLower(editorID))
	if err != nil {
		return nil, fmt.Errorf("getting actor: %w", err)
	}
	defer rows.Close()

	var actors []store.Actor
	for rows.Next() {
		var a store.Actor
		var localID int64
		var record []byte
		err := rows.Scan(&a.Plugin, &localID, &a.EditorID, &a.FormType, &a.Name, &a.SourceFile, &record)
		if err != nil {
			return nil, fmt.Errorf("scanning actor: %w", err)
		}
		a.LocalID = uint32(localID)
		if len(record) > 0 {
			if err := json.Unmarshal(record, &a.Record); err != nil {
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
	terms := prefixQuery(query)
	if terms == "" {
		return nil, fmt.Errorf("query needs at least one search term")
	}

	sql := `
SELECT plugin, local_id, editor_id, form_type, name,
    ts_rank(search_vector, to_tsquery('simple', $1)) AS score
FROM forms
WHERE search_vector @@ to_tsquery('simple', $1)
  AND ($2 = '' OR form_type = $2)
ORDER BY score DESC, editor_id ASC
LIMIT 50
`

	rows, err := c.pool.Query(ctx, sql, terms, formType)
	if err != nil {
		return nil, fmt.Errorf("searching forms: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var localID int64
		var score float32
		if err := rows.Scan(&r.Plugin, &localID, &r.EditorID, &r.FormType, &r.Name, &score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.LocalID = uint32(localID)
		r.Score = float64(score)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

// prefixQuery builds a to_tsquery expression: every term is a prefix
// match, a leading '-' negates it. Characters with tsquery meaning are
// dropped.
func prefixQuery(text string) string {
	var include, exclude []string
	for _, term := range strings.Fields(text) {
		negated := len(term) > 1 && term[0] == '-'
		term = strings.ToLower(strings.TrimPrefix(term, "-"))
		term = strings.Map(func(r rune) rune {
			switch r {
			case '&', '|', '!', '(', ')', ':', '*', '\'', '"', '\\', '<', '>':
				return -1
			}
			return r
		}, term)
		if term == "" {
			continue
		}
		if negated {
			exclude = append(exclude, "!"+term+":*")
		} else {
			include = append(include, term+":*")
		}
	}
	if len(include) == 0 {
		return ""
	}
	return strings.Join(append(include, exclude...), " & ")
}
