package mcp

import (
	"context"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"formdist/internal/dryrun"
	"formdist/internal/store"
)

// Querier is the catalog surface the tools read.
type Querier interface {
	GetActor(ctx context.Context, editorID string) (*store.Actor, error)
	Search(ctx context.Context, query, formType string) ([]store.SearchResult, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ListGrants(ctx context.Context, runID uuid.UUID, actor string) ([]store.Grant, error)
}

type Server struct {
	db     Querier
	runner *dryrun.Runner
	mcp    *sdk.Server
}

func NewServer(db Querier, runner *dryrun.Runner, version string) *Server {
	s := &Server{
		db:     db,
		runner: runner,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "formdist",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
