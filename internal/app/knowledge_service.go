package app

import (
	"context"
	"fmt"
	"log/slog"

	"ragchat/internal/ingest"
	"ragchat/internal/model"
	"ragchat/internal/vectorstore"
)

// KnowledgeService manages the document side of the knowledge base: ingest,
// update, delete, list, wipe. It owns no retrieval logic.
type KnowledgeService struct {
	store  vectorstore.Store
	logger *slog.Logger
}

func NewKnowledgeService(store vectorstore.Store, logger *slog.Logger) *KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{store: store, logger: logger}
}

// Ingest parses the file and pushes each chunk individually: a failure
// mid-way leaves previously pushed chunks stored and searchable. There is no
// pipeline-wide rollback.
func (s *KnowledgeService) Ingest(ctx context.Context, path string) ([]model.DocumentMeta, error) {
	docs, err := ingest.Load(path)
	if err != nil {
		return nil, err
	}

	metas := make([]model.DocumentMeta, 0, len(docs))
	for _, doc := range docs {
		if err := s.store.Add(ctx, []model.Document{doc}); err != nil {
			return nil, fmt.Errorf("store chunk %s failed: %w", doc.ID, err)
		}
		metas = append(metas, doc.Meta())
	}

	s.logger.Info("document ingested", "source", docs[0].Source, "chunks", len(docs))
	return metas, nil
}

// DocumentUpdate replaces a document's content under its existing id.
type DocumentUpdate struct {
	ID      string `json:"id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (s *KnowledgeService) UpdateDocuments(ctx context.Context, updates []DocumentUpdate) error {
	if len(updates) == 0 {
		return ErrInvalidInput
	}
	for _, u := range updates {
		if err := s.store.Update(ctx, u.ID, u.Content); err != nil {
			return err
		}
	}
	return nil
}

func (s *KnowledgeService) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.store.Delete(ctx, []string{id})
}

func (s *KnowledgeService) ListDocuments(ctx context.Context, limit int) ([]model.DocumentMeta, error) {
	docs, err := s.store.ListAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	metas := make([]model.DocumentMeta, len(docs))
	for i, d := range docs {
		metas[i] = d.Meta()
	}
	return metas, nil
}

// Wipe deletes every stored document. Returns the number removed.
func (s *KnowledgeService) Wipe(ctx context.Context) (int, error) {
	docs, err := s.store.ListAll(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	if err := s.store.Delete(ctx, ids); err != nil {
		return 0, err
	}
	s.logger.Info("knowledge base wiped", "documents", len(ids))
	return len(ids), nil
}
