package kb

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/middleware"
	"ticketpilot/backend/internal/worker"
)

type Publisher interface {
	Publish(topic string, body []byte) error
}

// Handler exposes knowledge-base maintenance over HTTP. Reindexing is
// asynchronous: the request only enqueues the run.
type Handler struct {
	publisher Publisher
}

func NewHandler(p Publisher) *Handler {
	return &Handler{publisher: p}
}

// Reindex handles POST /kb/reindex.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload := worker.ReindexPayload{CorrelationID: middleware.GetCorrelationID(ctx)}
	body, err := json.Marshal(payload)
	if err != nil {
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.publisher.Publish(config.TopicKBReindex, body); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue reindex", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to enqueue reindex", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(ctx, "reindex enqueued")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "queued"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
