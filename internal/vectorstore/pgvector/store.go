// Package pgvector implements the vector store on Postgres with the pgvector
// extension. Similarity search orders by cosine distance (`<=>`).
package pgvector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"ragchat/internal/model"
	"ragchat/internal/vectorstore"
)

const tableName = "knowledge_documents"

// Embedder turns text into vectors. Both methods suspend on a network call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// embedBatchSize keeps requests under common provider array limits.
const embedBatchSize = 10

type record struct {
	ID        string          `gorm:"primaryKey"`
	Content   string          `gorm:"type:text;not null"`
	Source    string          `gorm:"size:256"`
	CreatedAt time.Time
	Embedding pgvector.Vector `gorm:"type:vector"`
}

func (record) TableName() string { return tableName }

func (r record) document() model.Document {
	return model.Document{
		ID:        r.ID,
		Content:   r.Content,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
}

type Store struct {
	db        *gorm.DB
	embedder  Embedder
	dimension int
}

func New(db *gorm.DB, embedder Embedder, dimension int) *Store {
	return &Store{db: db, embedder: embedder, dimension: dimension}
}

// Migrate creates the extension and the documents table. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("create vector extension failed: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		source VARCHAR(256),
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		embedding VECTOR(%d)
	)`, tableName, s.dimension)
	if err := tx.Exec(ddl).Error; err != nil {
		return fmt.Errorf("create %s table failed: %w", tableName, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed documents failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding count mismatch: got %d for %d documents", len(vectors), len(batch))
		}

		records := make([]record, len(batch))
		for i, d := range batch {
			createdAt := d.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			records[i] = record{
				ID:        d.ID,
				Content:   d.Content,
				Source:    d.Source,
				CreatedAt: createdAt,
				Embedding: pgvector.NewVector(vectors[i]),
			}
		}
		if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
			return fmt.Errorf("insert documents failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	if k <= 0 {
		k = 5
	}
	if strings.TrimSpace(query) == "" {
		return s.ListAll(ctx, k)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	var records []record
	err = s.db.WithContext(ctx).
		Raw(fmt.Sprintf(
			"SELECT id, content, source, created_at FROM %s ORDER BY embedding <=> ? LIMIT ?", tableName),
			pgvector.NewVector(vec), k).
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return toDocuments(records), nil
}

func (s *Store) Update(ctx context.Context, id, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("update document %s: %w", id, vectorstore.ErrEmptyContent)
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed updated content failed: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&record{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"embedding": pgvector.NewVector(vec),
		})
	if result.Error != nil {
		return fmt.Errorf("update document %s failed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update document %s: %w", id, vectorstore.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []record
	err := s.db.WithContext(ctx).
		Select("id", "content", "source", "created_at").
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return toDocuments(records), nil
}

func toDocuments(records []record) []model.Document {
	docs := make([]model.Document, len(records))
	for i := range records {
		docs[i] = records[i].document()
	}
	return docs
}
