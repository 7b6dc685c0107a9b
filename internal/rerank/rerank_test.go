package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/ai"
	"ragchat/internal/model"
)

type fakeGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	if len(messages) > 0 {
		f.lastPrompt = messages[len(messages)-1].Content
	}
	return f.reply, f.err
}

func docs(contents ...string) []model.Document {
	out := make([]model.Document, len(contents))
	for i, c := range contents {
		out[i] = model.Document{ID: c, Content: c}
	}
	return out
}

func TestRerank_EmptyCandidates(t *testing.T) {
	r := New(&fakeGenerator{})
	_, err := r.Rerank(context.Background(), "q", nil, 5)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRerank_OrdersByLabelPosition(t *testing.T) {
	gen := &fakeGenerator{reply: "Document 3, Document 1, Document 2"}
	r := New(gen)

	out, err := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].Content)
	assert.Equal(t, "a", out[1].Content)
	assert.Equal(t, "b", out[2].Content)
}

func TestRerank_TruncatesToTopN(t *testing.T) {
	gen := &fakeGenerator{reply: "Document 2, Document 4, Document 1, Document 3"}
	r := New(gen)

	out, err := r.Rerank(context.Background(), "q", docs("a", "b", "c", "d"), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Content)
	assert.Equal(t, "d", out[1].Content)
}

func TestRerank_DropsUnmentionedCandidates(t *testing.T) {
	gen := &fakeGenerator{reply: "The most relevant is Document 2."}
	r := New(gen)

	out, err := r.Rerank(context.Background(), "q", docs("a", "b", "c"), 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Content)
}

func TestRerank_LabelDigitBoundary(t *testing.T) {
	// "Document 12" must not satisfy "Document 1".
	candidates := make([]model.Document, 12)
	for i := range candidates {
		candidates[i] = model.Document{Content: string(rune('a' + i))}
	}
	gen := &fakeGenerator{reply: "Document 12, Document 1"}
	r := New(gen)

	out, err := r.Rerank(context.Background(), "q", candidates, 12)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "l", out[0].Content)
	assert.Equal(t, "a", out[1].Content)
}

func TestRerank_NoLabelsIsParseError(t *testing.T) {
	gen := &fakeGenerator{reply: "I cannot rank these."}
	r := New(gen)

	_, err := r.Rerank(context.Background(), "q", docs("a", "b"), 2)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "I cannot rank these.", parseErr.Raw)
}

func TestRerank_GeneratorErrorPropagates(t *testing.T) {
	boom := errors.New("upstream down")
	r := New(&fakeGenerator{err: boom})

	_, err := r.Rerank(context.Background(), "q", docs("a"), 1)
	assert.ErrorIs(t, err, boom)
}

func TestRerank_PromptLabelsEveryCandidate(t *testing.T) {
	gen := &fakeGenerator{reply: "Document 1"}
	r := New(gen)

	_, err := r.Rerank(context.Background(), "which one", docs("alpha", "beta"), 2)
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt, "Query: which one")
	assert.Contains(t, gen.lastPrompt, "Document 1:\nalpha")
	assert.Contains(t, gen.lastPrompt, "Document 2:\nbeta")
}
