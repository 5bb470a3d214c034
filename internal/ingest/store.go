package ingest

import (
	"context"

	"formdist/internal/store"
)

// Store is the part of the catalog ingest reads and writes.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertDocument(ctx context.Context, d store.DocumentInput) error
	RemoveStaleDocuments(ctx context.Context, currentSourceFiles []string) (int64, error)
	GetSourceHashes(ctx context.Context) (map[string]string, error)
	ListDocuments(ctx context.Context) ([]store.Document, error)
}
