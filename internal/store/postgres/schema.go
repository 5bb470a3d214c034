package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All statements run in one implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS documents (
    source_file   TEXT PRIMARY KEY,
    plugin        TEXT NOT NULL,
    source_hash   TEXT NOT NULL,
    body          JSONB NOT NULL DEFAULT '{}',
    last_ingested TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS forms (
    id                   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    source_file          TEXT NOT NULL REFERENCES documents(source_file) ON DELETE CASCADE,
    plugin               TEXT NOT NULL,
    plugin_normalized    TEXT NOT NULL,
    local_id             BIGINT NOT NULL,
    editor_id            TEXT NOT NULL DEFAULT '',
    editor_id_normalized TEXT NOT NULL DEFAULT '',
    form_type            TEXT NOT NULL,
    name                 TEXT NOT NULL DEFAULT '',
    record               JSONB NOT NULL DEFAULT '{}',
    search_vector        TSVECTOR,
    CONSTRAINT uq_form_plugin_id UNIQUE (plugin_normalized, local_id)
);

CREATE TABLE IF NOT EXISTS runs (
    id           UUID PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    player_level INTEGER NOT NULL,
    only_leveled BOOLEAN NOT NULL DEFAULT FALSE,
    rules        INTEGER NOT NULL DEFAULT 0,
    actors       INTEGER NOT NULL DEFAULT 0,
    applied      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS grants (
    id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id   UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    actor    TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    category TEXT NOT NULL,
    form     TEXT NOT NULL,
    count    INTEGER NOT NULL DEFAULT 1,
    status   TEXT NOT NULL,
    reason   TEXT NOT NULL DEFAULT '',
    path     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_forms_search ON forms USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_forms_source_file ON forms (source_file);
CREATE INDEX IF NOT EXISTS idx_forms_type ON forms (form_type);
CREATE INDEX IF NOT EXISTS idx_forms_plugin ON forms (plugin_normalized);
CREATE INDEX IF NOT EXISTS idx_forms_editor_id ON forms (editor_id_normalized);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs (started_at);
CREATE INDEX IF NOT EXISTS idx_grants_run ON grants (run_id);
CREATE INDEX IF NOT EXISTS idx_grants_run_actor ON grants (run_id, actor);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
