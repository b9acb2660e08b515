// Package retrieval finds the knowledge-base chunks nearest to a query.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/ticket"
)

type VectorStore interface {
	Query(ctx context.Context, vector []float32, topK int) ([]ticket.RetrievedDoc, error)
}

type Service struct {
	embedder inference.Embedder
	store    VectorStore
	timeout  time.Duration
}

// NewService wires the query side of the index. The embedder must be the
// same one used at indexing time; mixing embedding spaces silently ruins
// similarity scores.
func NewService(e inference.Embedder, s VectorStore, timeout time.Duration) *Service {
	return &Service{embedder: e, store: s, timeout: timeout}
}

// Retrieve returns up to topK chunks ordered by descending similarity. An
// empty or sparse index yields a shorter (possibly empty) result, never an
// error; callers must cope with zero grounding. Embedding or index failures
// are infrastructure errors and propagate.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]ticket.RetrievedDoc, error) {
	start := time.Now()

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, vec, topK)
	if err != nil {
		return nil, err
	}

	// Backends return ranked results already; keep the ordering contract
	// explicit rather than assumed.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Similarity > docs[j].Similarity
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}

	slog.DebugContext(ctx, "retrieval done",
		"num_results", len(docs),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return docs, nil
}
