// Package vectorstore defines the contract the conversation engine and the
// knowledge service depend on for document storage and similarity search.
package vectorstore

import (
	"context"
	"errors"

	"ragchat/internal/model"
)

var (
	// ErrNotFound is returned by Update when the document id is absent.
	ErrNotFound = errors.New("document not found")
	// ErrEmptyContent is returned by Update when the new content is blank.
	ErrEmptyContent = errors.New("document content is empty")
)

// Store is a vector index keyed by opaque document id. Search with a blank
// query is the sanctioned idiom for "list up to k documents"; with a real
// query it returns documents ordered by descending relevance.
type Store interface {
	Add(ctx context.Context, docs []model.Document) error
	Search(ctx context.Context, query string, k int) ([]model.Document, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, ids []string) error
	ListAll(ctx context.Context, limit int) ([]model.Document, error)
}
