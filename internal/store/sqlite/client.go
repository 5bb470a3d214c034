// Package sqlite stores the world catalog and distribution runs in a single
// SQLite file, with FTS5 search over form names.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"formdist/internal/store"

	_ "modernc.org/sqlite"
)

const openTimeout = 30 * time.Second

// catalogPragmas run once when the catalog is opened. WAL lets a running
// serve command read while ingest writes.
var catalogPragmas = []string{
	"PRAGMA busy_timeout = 30000;",
	"PRAGMA journal_mode = WAL;",
	"PRAGMA foreign_keys = ON;",
}

var _ store.Store = (*Client)(nil)

type Client struct {
	db *sql.DB
}

// New opens the catalog named by a sqlite:// DSN. sqlite://:memory: gives a
// private database that lives as long as the client.
func New(ctx context.Context, dsn string) (*Client, error) {
	driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if driverDSN == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	if err := configure(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db}, nil
}

func configure(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("reaching catalog: %w", err)
	}
	for _, pragma := range catalogPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (c *Client) Close(context.Context) error {
	return c.db.Close()
}
