// Package worker hosts the NSQ consumers that keep the knowledge-base index
// current in the background.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/middleware"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkStore interface {
	HasChunk(ctx context.Context, chunkID string) (bool, error)
	InsertChunk(ctx context.Context, chunk index.Chunk) error
}

// EmbedConsumer consumes kb.embed tasks: embed one chunk and insert it,
// skipping ids that landed in the index since the task was published.
type EmbedConsumer struct {
	embedder Embedder
	store    ChunkStore
	timeout  time.Duration
}

func NewEmbedConsumer(e Embedder, s ChunkStore, timeout time.Duration) *EmbedConsumer {
	return &EmbedConsumer{embedder: e, store: s, timeout: timeout}
}

func (h *EmbedConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload index.EmbedChunkPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.ChunkID == "" {
		slog.Error("poison pill: embed task without chunk id")
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	exists, err := h.store.HasChunk(ctx, payload.ChunkID)
	if err != nil {
		slog.ErrorContext(ctx, "chunk lookup failed", "error", err, "chunk_id", payload.ChunkID)
		return err // Retry
	}
	if exists {
		slog.DebugContext(ctx, "chunk already indexed, skipping", "chunk_id", payload.ChunkID)
		return nil
	}

	vector, err := h.embedder.Embed(ctx, payload.Content)
	if err != nil {
		var formatErr *inference.EmbeddingFormatError
		if errors.As(err, &formatErr) {
			// The provider response shape is wrong, not a transient fault.
			// Requeueing would loop forever.
			slog.ErrorContext(ctx, "poison pill: unusable embedding response", "error", err, "chunk_id", payload.ChunkID)
			return nil
		}
		slog.ErrorContext(ctx, "embedding failed", "error", err, "chunk_id", payload.ChunkID)
		return err // Retry
	}

	chunk := index.Chunk{
		ID:      payload.ChunkID,
		DocID:   payload.DocID,
		Index:   payload.ChunkIndex,
		Content: payload.Content,
		Vector:  vector,
	}
	if err := h.store.InsertChunk(ctx, chunk); err != nil {
		if errors.Is(err, index.ErrChunkExists) {
			slog.DebugContext(ctx, "chunk inserted by a concurrent worker", "chunk_id", payload.ChunkID)
			return nil
		}
		slog.ErrorContext(ctx, "insert chunk failed", "error", err, "chunk_id", payload.ChunkID)
		return err // Retry
	}

	slog.InfoContext(ctx, "chunk indexed", "chunk_id", payload.ChunkID, "doc_id", payload.DocID)
	return nil
}
