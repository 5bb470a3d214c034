package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"formdist/internal/store"
)

func (c *Client) UpsertDocument(ctx context.Context, d store.DocumentInput) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO documents (source_file, plugin, source_hash, body, last_ingested)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (source_file) DO UPDATE SET
    plugin = EXCLUDED.plugin,
    source_hash = EXCLUDED.source_hash,
    body = EXCLUDED.body,
    last_ingested = now()
`, d.SourceFile, d.Plugin, d.SourceHash, d.Body)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM forms WHERE source_file = $1", d.SourceFile); err != nil {
		return fmt.Errorf("clearing document forms: %w", err)
	}

	batch := &pgx.Batch{}
	for _, f := range d.Forms {
		record := f.Record
		if len(record) == 0 {
			record = []byte("{}")
		}
		batch.Queue(`
INSERT INTO forms (source_file, plugin, plugin_normalized, local_id, editor_id, editor_id_normalized, form_type, name, record, search_vector)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
    setweight(to_tsvector('simple', coalesce($5, '')), 'A') ||
    setweight(to_tsvector('simple', coalesce($8, '')), 'B')
)
`,
			d.SourceFile,
			d.Plugin,
			strings.ToLower(d.Plugin),
			int64(f.LocalID),
			f.EditorID,
			strings.ToLower(f.EditorID),
			f.FormType,
			f.Name,
			record,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting forms: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

// RemoveStaleDocuments deletes documents whose source file is no longer
// present. Their forms go with them.
func (c *Client) RemoveStaleDocuments(ctx context.Context, currentSourceFiles []string) (int64, error) {
	if len(currentSourceFiles) == 0 {
		return 0, nil
	}
	tag, err := c.pool.Exec(ctx, `
DELETE FROM documents
WHERE NOT (source_file = ANY($1))
`, currentSourceFiles)
	if err != nil {
		return 0, fmt.Errorf("removing stale documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) GetSourceHashes(ctx context.Context) (map[string]string, error) {
	rows, err := c.pool.Query(ctx, "SELECT source_file, source_hash FROM documents")
	if err != nil {
		return nil, fmt.Errorf("query source hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var sourceFile, sourceHash string
		if err := rows.Scan(&sourceFile, &sourceHash); err != nil {
			return nil, fmt.Errorf("scanning source hash: %w", err)
		}
		hashes[sourceFile] = sourceHash
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source hashes: %w", err)
	}

	return hashes, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]store.Document, error) {
	rows, err := c.pool.Query(ctx, `
SELECT source_file, source_hash, plugin, body::text
FROM documents
ORDER BY source_file
`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	documents := []store.Document{}
	for rows.Next() {
		var d store.Document
		var body string
		if err := rows.Scan(&d.SourceFile, &d.SourceHash, &d.Plugin, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Body = []byte(body)
		documents = append(documents, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return documents, nil
}
