// Package memory is a mutex-guarded, embedding-free vector store used by
// tests and local development. Relevance is token overlap between query and
// content, which keeps results deterministic without an embedding service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ragchat/internal/model"
	"ragchat/internal/vectorstore"
)

type Store struct {
	mu   sync.RWMutex
	docs []model.Document
}

func New() *Store { return &Store{} }

func (s *Store) Add(_ context.Context, docs []model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *Store) Search(_ context.Context, query string, k int) ([]model.Document, error) {
	if k <= 0 {
		k = 5
	}
	if strings.TrimSpace(query) == "" {
		return s.list(k), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	type scored struct {
		doc   model.Document
		score int
		order int
	}
	results := make([]scored, 0, len(s.docs))
	for i, d := range s.docs {
		score := overlap(terms, tokenize(d.Content))
		if score == 0 {
			continue
		}
		results = append(results, scored{doc: d, score: score, order: i})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})
	if k > len(results) {
		k = len(results)
	}
	out := make([]model.Document, k)
	for i := 0; i < k; i++ {
		out[i] = results[i].doc
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, id, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("update document %s: %w", id, vectorstore.ErrEmptyContent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs[i].Content = content
			return nil
		}
	}
	return fmt.Errorf("update document %s: %w", id, vectorstore.ErrNotFound)
}

func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.docs[:0]
	for _, d := range s.docs {
		if !drop[d.ID] {
			kept = append(kept, d)
		}
	}
	s.docs = kept
	return nil
}

func (s *Store) ListAll(_ context.Context, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(limit), nil
}

func (s *Store) list(limit int) []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.docs) {
		limit = len(s.docs)
	}
	out := make([]model.Document, limit)
	copy(out, s.docs[:limit])
	return out
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		tokens[strings.Trim(f, ".,;:!?\"'()")] = true
	}
	delete(tokens, "")
	return tokens
}

func overlap(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}
