package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"formdist/internal/store"
)

func (c *Client) SaveRun(ctx context.Context, run store.Run) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, player_level, only_leveled, rules, actors, applied)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID.String(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(run.PlayerLevel),
		run.OnlyLeveled,
		run.Rules,
		run.Actors,
		run.Applied,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO grants (run_id, actor, actor_id, category, form, count, status, reason, path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing grant insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range run.Grants {
		_, err := stmt.ExecContext(ctx, run.ID.String(), g.Actor, g.ActorID, g.Category, g.Form, g.Count, g.Status, g.Reason, g.Path)
		if err != nil {
			return fmt.Errorf("inserting grant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without their grants.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, `
	SELECT id, started_at, player_level, only_leveled, rules, actors, applied
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []store.Run{}
	for rows.Next() {
		var r store.Run
		var id, startedAt string
		var level int64
		if err := rows.Scan(&id, &startedAt, &level, &r.OnlyLeveled, &r.Rules, &r.Actors, &r.Applied); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing run time %q: %w", startedAt, err)
		}
		r.PlayerLevel = uint16(level)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// ListGrants returns the outcomes recorded for a run, optionally for one
// actor editor ID.
func (c *Client) ListGrants(ctx context.Context, runID uuid.UUID, actor string) ([]store.Grant, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT actor, actor_id, category, form, count, status, reason, path
	FROM grants
	WHERE run_id = ?
	  AND (? = '' OR lower(actor) = lower(?))
	ORDER BY id
	`, runID.String(), actor, actor)
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
