package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"formdist/internal/store"
)

func (c *Client) SaveRun(ctx context.Context, run store.Run) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO runs (id, started_at, player_level, only_leveled, rules, actors, applied)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, run.ID, run.StartedAt, int32(run.PlayerLevel), run.OnlyLeveled, run.Rules, run.Actors, run.Applied)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if len(run.Grants) > 0 {
		rows := make([][]any, 0, len(run.Grants))
		for _, g := range run.Grants {
			rows = append(rows, []any{run.ID, g.Actor, g.ActorID, g.Category, g.Form, g.Count, g.Status, g.Reason, g.Path})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"grants"},
			[]string{"run_id", "actor", "actor_id", "category", "form", "count", "status", "reason", "path"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copying grants: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func (c *Client) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.pool.Query(ctx, `
SELECT id, started_at, player_level, only_leveled, rules, actors, applied
FROM runs
ORDER BY started_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []store.Run{}
	for rows.Next() {
		var r store.Run
		var level int32
		if err := rows.Scan(&r.ID, &r.StartedAt, &level, &r.OnlyLeveled, &r.Rules, &r.Actors, &r.Applied); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.PlayerLevel = uint16(level)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

func (c *Client) ListGrants(ctx context.Context, runID uuid.UUID, actor string) ([]store.Grant, error) {
	rows, err := c.pool.Query(ctx, `
SELECT actor, actor_id, category, form, count, status, reason, path
FROM grants
WHERE run_id = $1
  AND ($2 = '' OR lower(actor) = lower($2))
ORDER BY id
`, runID, actor)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer rows.Close()

	grants := []store.Grant{}
	for rows.Next() {
		g := store.Grant{RunID: runID}
		if err := rows.Scan(&g.Actor, &g.ActorID, &g.Category, &g.Form, &g.Count, &g.Status, &g.Reason, &g.Path); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}

	return grants, nil
}
