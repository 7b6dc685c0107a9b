package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/ingest"
	"ragchat/internal/model"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
)

func TestKnowledgeService_Ingest(t *testing.T) {
	store := memory.New()
	svc := NewKnowledgeService(store, nil)

	path := filepath.Join(t.TempDir(), "facts.csv")
	require.NoError(t, os.WriteFile(path, []byte("animal,habit\ngopher,digging\nbeaver,damming\n"), 0o644))

	metas, err := svc.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "facts.csv", metas[0].Source)
	assert.NotEmpty(t, metas[0].ID)

	stored, err := store.ListAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestKnowledgeService_IngestUnsupported(t *testing.T) {
	svc := NewKnowledgeService(memory.New(), nil)

	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50}, 0o644))

	_, err := svc.Ingest(context.Background(), path)
	assert.ErrorIs(t, err, ingest.ErrUnsupportedFormat)
}

func TestKnowledgeService_UpdateDocuments(t *testing.T) {
	store := memory.New()
	svc := NewKnowledgeService(store, nil)
	seedKnowledge(t, store, "doc-1", "original")

	t.Run("empty batch", func(t *testing.T) {
		err := svc.UpdateDocuments(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("replaces content", func(t *testing.T) {
		err := svc.UpdateDocuments(context.Background(), []DocumentUpdate{{ID: "doc-1", Content: "revised"}})
		require.NoError(t, err)
		docs, err := store.ListAll(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, "revised", docs[0].Content)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := svc.UpdateDocuments(context.Background(), []DocumentUpdate{{ID: "missing", Content: "x"}})
		assert.ErrorIs(t, err, vectorstore.ErrNotFound)
	})
}

func TestKnowledgeService_DeleteDocument(t *testing.T) {
	store := memory.New()
	svc := NewKnowledgeService(store, nil)
	seedKnowledge(t, store, "doc-1", "content")

	assert.ErrorIs(t, svc.DeleteDocument(context.Background(), ""), ErrInvalidInput)
	require.NoError(t, svc.DeleteDocument(context.Background(), "doc-1"))

	docs, err := store.ListAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestKnowledgeService_Wipe(t *testing.T) {
	store := memory.New()
	svc := NewKnowledgeService(store, nil)
	seedKnowledge(t, store, "doc-1", "a")
	seedKnowledge(t, store, "doc-2", "b")

	n, err := svc.Wipe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.Wipe(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func seedKnowledge(t *testing.T, store *memory.Store, id, content string) {
	t.Helper()
	require.NoError(t, store.Add(context.Background(), []model.Document{{ID: id, Content: content}}))
}
