package gateway

import (
	"context"
	"strings"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/retrieval"
)

// KnowledgeAdapter exposes the retrieval index as the knowledge base tool
// backend.
type KnowledgeAdapter struct {
	index *retrieval.Index
	topK  int
}

// NewKnowledgeAdapter creates an adapter over index answering with the best
// topK chunks per query; topK <= 0 means retrieval.DefaultTopK.
func NewKnowledgeAdapter(index *retrieval.Index, topK int) *KnowledgeAdapter {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &KnowledgeAdapter{index: index, topK: topK}
}

// Query answers from the index, concatenating the best-matching chunks.
func (a *KnowledgeAdapter) Query(ctx context.Context, query string) (string, error) {
	hits, err := a.index.Search(ctx, query, a.topK)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "No relevant information found in the knowledge base.", nil
	}

	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		parts = append(parts, hit.Chunk.Text)
	}
	return strings.Join(parts, "\n\n"), nil
}
