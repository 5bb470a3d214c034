package store

import (
	"context"

	"github.com/google/uuid"
)

// Store persists the world catalog and distribution run reports.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertDocument(ctx context.Context, d DocumentInput) error
	RemoveStaleDocuments(ctx context.Context, currentSourceFiles []string) (int64, error)
	GetSourceHashes(ctx context.Context) (map[string]string, error)
	ListDocuments(ctx context.Context) ([]Document, error)

	ListForms(ctx context.Context, formType, plugin string) ([]FormSummary, error)
	GetActor(ctx context.Context, editorID string) (*Actor, error)
	Search(ctx context.Context, query, formType string) ([]SearchResult, error)

	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListGrants(ctx context.Context, runID uuid.UUID, actor string) ([]Grant, error)

	RunSQL(ctx context.Context, query string, args []any) ([]map[string]any, error)
}
