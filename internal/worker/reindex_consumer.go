package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/middleware"
)

// ReindexPayload is the kb.reindex message body.
type ReindexPayload struct {
	CorrelationID string `json:"correlation_id,omitempty"`
}

type IndexRunner interface {
	Run(ctx context.Context) (index.Stats, error)
}

// ReindexConsumer consumes kb.reindex requests and walks the knowledge base,
// fanning the net-new chunks out to the embed workers.
type ReindexConsumer struct {
	indexer IndexRunner
}

func NewReindexConsumer(ix IndexRunner) *ReindexConsumer {
	return &ReindexConsumer{indexer: ix}
}

func (h *ReindexConsumer) HandleMessage(m *nsq.Message) error {
	var payload ReindexPayload
	if len(m.Body) > 0 {
		if err := json.Unmarshal(m.Body, &payload); err != nil {
			// Poison Pill: Invalid JSON, don't retry
			slog.Error("poison pill: invalid json", "error", err)
			return nil
		}
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	stats, err := h.indexer.Run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "reindex run failed", "error", err)
		return err // Retry
	}

	slog.InfoContext(ctx, "reindex run complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"skipped", stats.Skipped,
		"published", stats.Published,
	)
	return nil
}
