package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/ports"
)

// Ranker orders a corpus against a query by cosine similarity of dense
// embeddings. Brute force is fine at this corpus size; the catalog holds
// abstracts, not web-scale documents.
type Ranker struct {
	embedder ports.Embedder
}

var _ ports.Ranker = (*Ranker)(nil)

// NewRanker wires the embedding backend.
func NewRanker(embedder ports.Embedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// TopK returns the indices of the k most similar corpus entries, highest
// first. Ties keep the lower corpus index first.
func (r *Ranker) TopK(ctx context.Context, query string, corpus []string, k int) ([]int, error) {
	if len(corpus) == 0 || k <= 0 {
		return nil, nil
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("embedding backend not configured: %w", apperr.ErrUnavailable)
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	corpusVecs, err := r.embedder.EmbedBatch(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(corpusVecs) != len(corpus) {
		return nil, fmt.Errorf("corpus embedding count mismatch: %d != %d", len(corpusVecs), len(corpus))
	}

	scores := make([]float64, len(corpusVecs))
	for i, vec := range corpusVecs {
		scores[i] = cosine(queryVec, vec)
	}

	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})

	if k > len(idxs) {
		k = len(idxs)
	}
	return idxs[:k], nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
