package store

import (
	"time"

	"github.com/google/uuid"
)

// DocumentInput is one world file and the forms it defines. Upserting a
// document replaces every form previously read from the same file.
type DocumentInput struct {
	SourceFile string
	SourceHash string
	Plugin     string
	Body       []byte
	Forms      []FormInput
}

type FormInput struct {
	LocalID  uint32
	EditorID string
	FormType string
	Name     string
	Record   []byte
}

type Document struct {
	SourceFile string
	SourceHash string
	Plugin     string
	Body       []byte
}

type FormSummary struct {
	Plugin   string
	LocalID  uint32
	EditorID string
	FormType string
	Name     string
}

type Actor struct {
	FormSummary
	SourceFile string
	Record     map[string]any
}

type SearchResult struct {
	FormSummary
	Score float64
}

// Run is one recorded distribution pass over the world.
type Run struct {
	ID          uuid.UUID
	StartedAt   time.Time
	PlayerLevel uint16
	OnlyLeveled bool
	Rules       int
	Actors      int
	Applied     int
	Grants      []Grant
}

type Grant struct {
	RunID    uuid.UUID
	Actor    string
	ActorID  string
	Category string
	Form     string
	Count    int32
	Status   string
	Reason   string
	Path     string
}
