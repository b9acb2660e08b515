package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketpilot/backend/internal/middleware"
	"ticketpilot/backend/internal/ticket"
)

func TestTicketLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTicketLogger(&buf)

	tk := ticket.Ticket{Sender: "user@example.com", Subject: "Card declined", Body: "I tried to pay"}
	res := &ticket.Result{
		Reply:      "Subject: Payment Please retry with a valid card.",
		Category:   ticket.CategoryPaymentFailure,
		Confidence: 0.83,
		RetrievedDocs: []ticket.RetrievedDoc{
			{ID: "billing.txt#0", Content: "update your card", Similarity: 0.9},
		},
	}

	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")
	require.NoError(t, logger.Record(ctx, tk, res))

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user@example.com", entry.Sender)
	assert.Equal(t, "Card declined", entry.Subject)
	assert.Equal(t, "payment_failure", entry.Category)
	assert.Equal(t, 0.83, entry.Confidence)
	assert.Equal(t, "corr-123", entry.CorrelationID)
	require.Len(t, entry.RetrievedDocs, 1)
	assert.Equal(t, "billing.txt#0", entry.RetrievedDocs[0].ID)
	assert.WithinDuration(t, time.Now().UTC(), entry.Timestamp, time.Minute)
}

func TestTicketLogger_Truncation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTicketLogger(&buf)

	tk := ticket.Ticket{Body: strings.Repeat("b", 600)}
	res := &ticket.Result{
		Reply:    strings.Repeat("r", 600),
		Category: ticket.CategoryGeneralQuestion,
		RetrievedDocs: []ticket.RetrievedDoc{
			{ID: "doc#0", Content: strings.Repeat("c", 400)},
		},
	}

	require.NoError(t, logger.Record(context.Background(), tk, res))

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Len(t, entry.Body, 500)
	assert.Len(t, entry.Reply, 500)
	assert.Len(t, entry.RetrievedDocs[0].Content, 300)
}

func TestTicketLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTicketLogger(&buf)

	concurrency := 20
	iterations := 50
	var wg sync.WaitGroup

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_ = logger.Record(context.Background(), ticket.Ticket{Subject: "s"}, &ticket.Result{Category: ticket.CategoryUnknown})
			}
		}()
	}
	wg.Wait()

	decoder := json.NewDecoder(&buf)
	count := 0
	for decoder.More() {
		var entry Entry
		require.NoError(t, decoder.Decode(&entry))
		count++
	}
	assert.Equal(t, concurrency*iterations, count)
}

func TestDirTicketLogger_DailyFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewDirTicketLogger(filepath.Join(dir, "tickets"))

	tk := ticket.Ticket{Sender: "a@b.c", Subject: "hi", Body: "hello"}
	res := &ticket.Result{Category: ticket.CategoryGeneralQuestion, Reply: "r"}
	require.NoError(t, logger.Record(context.Background(), tk, res))
	require.NoError(t, logger.Record(context.Background(), tk, res))

	path := filepath.Join(dir, "tickets", time.Now().UTC().Format("2006-01-02")+".jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
}
