// Package audit persists a JSONL record of every processed ticket, one file
// per day, for offline inspection and evaluation runs.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ticketpilot/backend/internal/middleware"
	"ticketpilot/backend/internal/ticket"
)

const (
	maxBodyLen  = 500
	maxDocLen   = 300
	maxReplyLen = 500
)

type DocEntry struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type Entry struct {
	Timestamp     time.Time  `json:"timestamp"`
	Sender        string     `json:"sender"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Category      string     `json:"category"`
	Confidence    float64    `json:"confidence"`
	Reply         string     `json:"reply"`
	RetrievedDocs []DocEntry `json:"retrieved_docs"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// TicketLogger appends one JSON line per processed ticket. Safe for
// concurrent use.
type TicketLogger struct {
	open openWriterFunc
	mu   sync.Mutex
}

type openWriterFunc func(day time.Time) (io.Writer, func(), error)

func NewTicketLogger(w io.Writer) *TicketLogger {
	return &TicketLogger{open: func(time.Time) (io.Writer, func(), error) {
		return w, func() {}, nil
	}}
}

// NewDirTicketLogger writes entries to <dir>/YYYY-MM-DD.jsonl, rolling over
// at midnight. The directory is created on first use.
func NewDirTicketLogger(dir string) *TicketLogger {
	return &TicketLogger{open: func(day time.Time) (io.Writer, func(), error) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, err
		}
		path := filepath.Join(dir, day.Format("2006-01-02")+".jsonl")
		f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is from application config, not user input
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}}
}

// Record implements pipeline.AuditSink. Long fields are truncated so a noisy
// ticket cannot bloat the log.
func (l *TicketLogger) Record(ctx context.Context, t ticket.Ticket, res *ticket.Result) error {
	now := time.Now().UTC()
	entry := Entry{
		Timestamp:  now,
		Sender:     t.Sender,
		Subject:    t.Subject,
		Body:       truncate(t.Body, maxBodyLen),
		Category:   string(res.Category),
		Confidence: res.Confidence,
		Reply:      truncate(res.Reply, maxReplyLen),
	}
	if cid, ok := ctx.Value(middleware.CorrelationKey).(string); ok {
		entry.CorrelationID = cid
	}
	entry.RetrievedDocs = make([]DocEntry, 0, len(res.RetrievedDocs))
	for _, d := range res.RetrievedDocs {
		entry.RetrievedDocs = append(entry.RetrievedDocs, DocEntry{
			ID:         d.ID,
			Content:    truncate(d.Content, maxDocLen),
			Similarity: d.Similarity,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	w, closeFn, err := l.open(now)
	if err != nil {
		return err
	}
	defer closeFn()
	return json.NewEncoder(w).Encode(entry)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
