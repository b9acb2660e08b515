package ticket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"ticketpilot/backend/internal/middleware"
	core "ticketpilot/backend/internal/ticket"
)

const defaultListLimit = 20

// Processor runs one ticket through the full pipeline.
type Processor interface {
	Process(ctx context.Context, t core.Ticket) (*core.Result, error)
}

type Repo interface {
	Save(ctx context.Context, rec *Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}

type Handler struct {
	processor Processor
	repo      Repo
}

func NewHandler(p Processor, repo Repo) *Handler {
	return &Handler{processor: p, repo: repo}
}

// Process handles POST /tickets/process: classify, retrieve, and draft a
// reply for one inbound email.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
		Sender  string `json:"sender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	if req.Subject == "" && req.Body == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "subject or body is required", http.StatusBadRequest)
		return
	}

	t := core.Ticket{Subject: req.Subject, Body: req.Body, Sender: req.Sender}
	result, err := h.processor.Process(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "ticket processing failed", "error", err, "sender", t.Sender)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rec := &Record{
		Sender:     t.Sender,
		Subject:    t.Subject,
		Body:       t.Body,
		Category:   string(result.Category),
		Confidence: result.Confidence,
		Reply:      result.Reply,
	}
	// The reply is already drafted; a failed write must not turn a good
	// response into a 500.
	if err := h.repo.Save(r.Context(), rec); err != nil {
		slog.WarnContext(r.Context(), "failed to persist ticket", "error", err, "sender", t.Sender)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// List handles GET /tickets: most recent processed tickets first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tickets", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": records}); err != nil {
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
