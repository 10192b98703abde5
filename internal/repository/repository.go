package repository

import (
	"context"

	"github.com/sakif/px/internal/model"
)

// Result caps enforced by the store regardless of what callers ask for.
const (
	MaxSearchResults = 50
	MaxListResults   = 100

	// MaxAllocateAttempts bounds the id regeneration loop in Allocate.
	MaxAllocateAttempts = 10
)

type ListOptions struct {
	Limit int
}

// TagRepository is the durable store of tags and their links.
//
// Allocate fails with apperror.ErrExhausted after MaxAllocateAttempts
// collisions. Get, Update and AddLink fail with apperror.ErrNotFound for an
// unknown id. Delete and RemoveLink are idempotent.
type TagRepository interface {
	Allocate(ctx context.Context, name string, meta model.Meta) (*model.Tag, error)
	Get(ctx context.Context, id string) (*model.Tag, error)
	Update(ctx context.Context, id string, upd model.TagUpdate) error
	Delete(ctx context.Context, id string) error
	AddLink(ctx context.Context, id, linkType, url string) error
	RemoveLink(ctx context.Context, id, linkType string) error
	Search(ctx context.Context, query string, opts ListOptions) ([]model.Tag, error)
	List(ctx context.Context, opts ListOptions) ([]model.TagSummary, error)
}
