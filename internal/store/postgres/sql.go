package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RunSQL runs an ad hoc catalog query with positional $n arguments and
// returns one map per row keyed by column name.
func (c *Client) RunSQL(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running catalog query: %w", err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("reading catalog query rows: %w", err)
	}
	return results, nil
}
