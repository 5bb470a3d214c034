package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS documents (
		source_file   TEXT PRIMARY KEY,
		plugin        TEXT NOT NULL,
		source_hash   TEXT NOT NULL,
		body          TEXT NOT NULL DEFAULT '{}',
		last_ingested TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS forms (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file          TEXT NOT NULL REFERENCES documents(source_file) ON DELETE CASCADE,
		plugin               TEXT NOT NULL,
		plugin_normalized    TEXT NOT NULL,
		local_id             INTEGER NOT NULL,
		editor_id            TEXT NOT NULL DEFAULT '',
		editor_id_normalized TEXT NOT NULL DEFAULT '',
		form_type            TEXT NOT NULL,
		name                 TEXT NOT NULL DEFAULT '',
		record               TEXT NOT NULL DEFAULT '{}',
		CONSTRAINT uq_form_plugin_id UNIQUE (plugin_normalized, local_id)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		started_at   TEXT NOT NULL,
		player_level INTEGER NOT NULL,
		only_leveled INTEGER NOT NULL DEFAULT 0,
		rules        INTEGER NOT NULL DEFAULT 0,
		actors       INTEGER NOT NULL DEFAULT 0,
		applied      INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS grants (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		actor    TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		category TEXT NOT NULL,
		form     TEXT NOT NULL,
		count    INTEGER NOT NULL DEFAULT 1,
		status   TEXT NOT NULL,
		reason   TEXT NOT NULL DEFAULT '',
		path     TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_forms_source_file ON forms (source_file);
	CREATE INDEX IF NOT EXISTS idx_forms_type ON forms (form_type);
	CREATE INDEX IF NOT EXISTS idx_forms_plugin ON forms (plugin_normalized);
	CREATE INDEX IF NOT EXISTS idx_forms_editor_id ON forms (editor_id_normalized);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs (started_at);
	CREATE INDEX IF NOT EXISTS idx_grants_run ON grants (run_id);
	CREATE INDEX IF NOT EXISTS idx_grants_run_actor ON grants (run_id, actor);

	CREATE VIRTUAL TABLE IF NOT EXISTS forms_fts USING fts5(
		editor_id,
		name,
		content=forms,
		content_rowid=id
	);

	CREATE TRIGGER IF NOT EXISTS forms_ai AFTER INSERT ON forms BEGIN
		INSERT INTO forms_fts(rowid, editor_id, name)
		VALUES (new.id, new.editor_id, new.name);
	END;

	CREATE TRIGGER IF NOT EXISTS forms_ad AFTER DELETE ON forms BEGIN
		INSERT INTO forms_fts(forms_fts, rowid, editor_id, name)
		VALUES ('delete', old.id, old.editor_id, old.name);
	END;

	CREATE TRIGGER IF NOT EXISTS forms_au AFTER UPDATE ON forms BEGIN
		INSERT INTO forms_fts(forms_fts, rowid, editor_id, name)
		VALUES ('delete', old.id, old.editor_id, old.name);
		INSERT INTO forms_fts(rowid, editor_id, name)
		VALUES (new.id, new.editor_id, new.name);
	END;
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

// splitStatements splits DDL on lines ending in ';', keeping each trigger
// whole up to its END;.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	inTrigger := false

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		upper := strings.ToUpper(stripped)
		if strings.HasPrefix(upper, "CREATE TRIGGER") {
			inTrigger = true
		}
		if inTrigger {
			if upper == "END;" {
				statements = append(statements, current.String())
				current.Reset()
				inTrigger = false
			}
			continue
		}
		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
