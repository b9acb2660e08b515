package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ticketpilot/backend/internal/middleware"
)

type TicketRepo interface {
	Count(ctx context.Context) (int, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	ticketRepo  TicketRepo
	vectorStore VectorStore
}

func NewHandler(t TicketRepo, v VectorStore) *Handler {
	return &Handler{ticketRepo: t, vectorStore: v}
}

type StatsResponse struct {
	Tickets    int            `json:"tickets"`
	ByCategory map[string]int `json:"by_category"`
	KBChunks   int            `json:"kb_chunks"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	tCount, err := h.ticketRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count tickets", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count tickets", http.StatusInternalServerError)
		return
	}

	byCategory, err := h.ticketRepo.CountByCategory(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count tickets by category", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count tickets by category", http.StatusInternalServerError)
		return
	}

	cCount, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count indexed chunks", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Tickets:    tCount,
		ByCategory: byCategory,
		KBChunks:   cCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
