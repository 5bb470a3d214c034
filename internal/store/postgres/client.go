// Package postgres stores the world catalog and distribution runs in
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"formdist/internal/store"
)

const applicationName = "formdist"

var _ store.Store = (*Client)(nil)

// Client is a pooled catalog connection. It is safe for concurrent use.
type Client struct {
	pool *pgxpool.Pool
}

// New connects to dsn and checks the server is reachable. Sessions are
// tagged with the application name unless the DSN sets one.
func New(ctx context.Context, dsn string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening catalog pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reaching catalog database: %w", err)
	}
	return &Client{pool: pool}, nil
}

// Close waits for in-flight queries and releases the pool.
func (c *Client) Close(context.Context) error {
	c.pool.Close()
	return nil
}
