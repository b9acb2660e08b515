// Package index builds and maintains the deduplicated vector index over the
// knowledge base.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/kb"
	"ticketpilot/backend/internal/middleware"
	"ticketpilot/backend/internal/text"
)

// Chunk is an index entry ready for insertion: a stable-id chunk plus its
// embedding. Entries are created once per unique id and never updated.
type Chunk struct {
	ID      string
	DocID   string
	Index   int
	Content string
	Vector  []float32
}

// ErrChunkExists reports an insert racing against an identical chunk id.
// The indexer treats it as a successful dedup, not a failure.
var ErrChunkExists = errors.New("chunk id already present in index")

type VectorStore interface {
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	InsertChunk(ctx context.Context, chunk Chunk) error
}

type DocumentStore interface {
	Load(ctx context.Context) ([]kb.Document, error)
}

// Publisher hands net-new chunks to the embed workers instead of embedding
// inline. Optional: the CLI runs without one.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// EmbedChunkPayload is the kb.embed message body.
type EmbedChunkPayload struct {
	ChunkID       string `json:"chunk_id"`
	DocID         string `json:"doc_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Content       string `json:"content"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Stats summarizes one indexing run.
type Stats struct {
	Documents int
	Chunks    int
	Skipped   int
	Indexed   int
	Published int
}

type Indexer struct {
	docs      DocumentStore
	embedder  inference.Embedder
	store     VectorStore
	pub       Publisher
	maxTokens int
	overlap   float64
}

func NewIndexer(docs DocumentStore, embedder inference.Embedder, store VectorStore, maxTokens int, overlap float64) *Indexer {
	return &Indexer{
		docs:      docs,
		embedder:  embedder,
		store:     store,
		maxTokens: maxTokens,
		overlap:   overlap,
	}
}

// WithPublisher switches the indexer to publish mode: net-new chunks go to
// the kb.embed topic and the embed workers do the embedding and insertion.
func (ix *Indexer) WithPublisher(pub Publisher) *Indexer {
	ix.pub = pub
	return ix
}

// Run chunks every source document, skips every chunk id already present in
// the index, and embeds and inserts the rest. Re-running over an unchanged
// knowledge base is a no-op; over an updated one it only processes net-new
// chunks. An EmbeddingFormatError aborts the run: a chunk is indexed with a
// real vector or not at all.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	docs, err := ix.docs.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("load knowledge base: %w", err)
	}
	stats.Documents = len(docs)

	existing, err := ix.store.ExistingIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list indexed chunk ids: %w", err)
	}

	for _, doc := range docs {
		chunks := text.SplitChunks(doc.ID, text.Normalize(doc.Content), ix.maxTokens, ix.overlap)
		stats.Chunks += len(chunks)

		for _, c := range chunks {
			if _, ok := existing[c.ID]; ok {
				stats.Skipped++
				continue
			}

			if ix.pub != nil {
				if err := ix.publish(ctx, c); err != nil {
					return stats, err
				}
				stats.Published++
				continue
			}

			vector, err := ix.embedder.Embed(ctx, c.Content)
			if err != nil {
				return stats, fmt.Errorf("embed chunk %s: %w", c.ID, err)
			}

			entry := Chunk{ID: c.ID, DocID: c.DocID, Index: c.Index, Content: c.Content, Vector: vector}
			if err := ix.store.InsertChunk(ctx, entry); err != nil {
				if errors.Is(err, ErrChunkExists) {
					// Lost the insert race to a concurrent run; the chunk is
					// indexed either way.
					stats.Skipped++
					continue
				}
				return stats, fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
			stats.Indexed++
		}
	}

	slog.InfoContext(ctx, "indexing run finished",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"skipped", stats.Skipped,
		"indexed", stats.Indexed,
		"published", stats.Published,
	)
	return stats, nil
}

func (ix *Indexer) publish(ctx context.Context, c text.Chunk) error {
	payload := EmbedChunkPayload{
		ChunkID:       c.ID,
		DocID:         c.DocID,
		ChunkIndex:    c.Index,
		Content:       c.Content,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal embed payload: %w", err)
	}
	if err := ix.pub.Publish(config.TopicKBEmbed, body); err != nil {
		return fmt.Errorf("publish embed task for %s: %w", c.ID, err)
	}
	return nil
}
