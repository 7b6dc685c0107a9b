// Package rerank reorders retrieval candidates by asking a generative model
// to rank labeled documents and parsing the label order out of its free-text
// reply. The parse is best effort by construction; a reply mentioning no
// label at all is a hard error so callers never receive a silently unordered
// list.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ragchat/internal/ai"
	"ragchat/internal/model"
)

// ErrNoCandidates is returned when there is nothing to rank.
var ErrNoCandidates = errors.New("no candidate documents to rerank")

// ParseError reports a model reply that mentioned none of the document
// labels. Raw carries the full reply for diagnosis.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rerank response mentions no document label: %q", truncate(e.Raw, 200))
}

// Generator is the completion-only slice of the LLM client the reranker needs.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type Reranker struct {
	gen Generator
}

func New(gen Generator) *Reranker {
	return &Reranker{gen: gen}
}

// Rerank returns at most topN candidates ordered by the model's judgment.
// Candidates whose label never appears in the reply are dropped, not errored.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []model.Document, topN int) ([]model.Document, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if topN <= 0 {
		topN = len(candidates)
	}

	reply, err := r.gen.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: rerankInstruction},
		{Role: ai.RoleUser, Content: buildRerankPrompt(query, candidates)},
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion failed: %w", err)
	}

	type ranked struct {
		doc model.Document
		pos int
	}
	found := make([]ranked, 0, len(candidates))
	for i, doc := range candidates {
		pos := findLabel(reply, i+1)
		if pos < 0 {
			continue
		}
		found = append(found, ranked{doc: doc, pos: pos})
	}
	if len(found) == 0 {
		return nil, &ParseError{Raw: reply}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	if topN > len(found) {
		topN = len(found)
	}
	result := make([]model.Document, topN)
	for i := 0; i < topN; i++ {
		result[i] = found[i].doc
	}
	return result, nil
}

const rerankInstruction = "You rank documents by relevance to a query. " +
	"Answer with the document labels ordered from most to least relevant, " +
	"for example: Document 2, Document 1, Document 3."

func buildRerankPrompt(query string, candidates []model.Document) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	for i, doc := range candidates {
		fmt.Fprintf(&sb, "Document %d:\n%s\n\n", i+1, doc.Content)
	}
	sb.WriteString("Rank the documents above by relevance to the query.")
	return sb.String()
}

// findLabel returns the first position of "Document n" in reply, rejecting
// matches where n is a prefix of a longer number ("Document 1" inside
// "Document 12"). Returns -1 when the label is absent.
func findLabel(reply string, n int) int {
	label := fmt.Sprintf("Document %d", n)
	from := 0
	for {
		idx := strings.Index(reply[from:], label)
		if idx < 0 {
			return -1
		}
		abs := from + idx
		next := abs + len(label)
		if next >= len(reply) || !isDigit(reply[next]) {
			return abs
		}
		from = next
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
