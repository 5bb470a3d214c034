package sqlite

import (
	"context"
	"fmt"
	"strings"

	"formdist/internal/store"
)

func (c *Client) UpsertDocument(ctx context.Context, d store.DocumentInput) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO documents (source_file, plugin, source_hash, body, last_ingested)
	VALUES (?, ?, ?, ?, datetime('now'))
	ON CONFLICT (source_file) DO UPDATE SET
		plugin = excluded.plugin,
		source_hash = excluded.source_hash,
		body = excluded.body,
		last_ingested = datetime('now')
	`, d.SourceFile, d.Plugin, d.SourceHash, string(d.Body))
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM forms WHERE source_file = ?", d.SourceFile); err != nil {
		return fmt.Errorf("clearing document forms: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO forms (source_file, plugin, plugin_normalized, local_id, editor_id, editor_id_normalized, form_type, name, record)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing form insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range d.Forms {
		record := f.Record
		if len(record) == 0 {
			record = []byte("{}")
		}
		_, err := stmt.ExecContext(ctx,
			d.SourceFile,
			d.Plugin,
			strings.ToLower(d.Plugin),
			int64(f.LocalID),
			f.EditorID,
			strings.ToLower(f.EditorID),
			f.FormType,
			f.Name,
			string(record),
		)
		if err != nil {
			return fmt.Errorf("inserting form 0x%X~%s: %w", f.LocalID, d.Plugin, err)
		}
	}

	if err := tx.Commit(); err != nil {
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

	placeholders := make([]string, len(currentSourceFiles))
	args := make([]any, len(currentSourceFiles))
	for i, f := range currentSourceFiles {
		placeholders[i] = "?"
		args[i] = f
	}

	query := fmt.Sprintf(`
	DELETE FROM documents
	WHERE source_file NOT IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale documents: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return affected, nil
}

func (c *Client) GetSourceHashes(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT source_file, source_hash FROM documents")
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
	rows, err := c.db.QueryContext(ctx, `
	SELECT source_file, source_hash, plugin, body
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
