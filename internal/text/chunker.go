// Package text implements the knowledge-base chunking used by the indexer.
package text

import (
	"fmt"
	"math"
	"strings"
)

// Chunk is one bounded slice of a source document, identified stably by the
// document key plus its sequence index. Stable ids are what make re-indexing
// idempotent: same document and same parameters always produce the same ids.
type Chunk struct {
	ID      string
	DocID   string
	Index   int
	Content string
}

// ChunkID derives the stable identifier for chunk number idx of a document.
func ChunkID(docID string, idx int) string {
	return fmt.Sprintf("%s#%d", docID, idx)
}

// Normalize collapses all runs of whitespace to single spaces and trims the
// ends. Chunking operates on normalized text only, so chunk ids survive
// cosmetic edits to the source files.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Overlap returns the number of trailing tokens carried into the next chunk
// for a given window size and overlap fraction.
func Overlap(maxTokens int, fraction float64) int {
	return int(math.Round(float64(maxTokens) * fraction))
}

// SplitChunks splits a document into word-token windows of at most maxTokens
// tokens. Each window after the first starts with the last
// Overlap(maxTokens, fraction) tokens of the previous one, preserving context
// across chunk boundaries. The trailing partial window is flushed as a final
// chunk. A document of maxTokens tokens or fewer yields exactly one chunk
// equal to its normalized text.
func SplitChunks(docID, content string, maxTokens int, fraction float64) []Chunk {
	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return nil
	}

	overlap := Overlap(maxTokens, fraction)
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}

	var chunks []Chunk
	window := make([]string, 0, maxTokens)

	flush := func() {
		idx := len(chunks)
		chunks = append(chunks, Chunk{
			ID:      ChunkID(docID, idx),
			DocID:   docID,
			Index:   idx,
			Content: strings.Join(window, " "),
		})
	}

	for _, tok := range tokens {
		window = append(window, tok)
		if len(window) == maxTokens {
			flush()
			// Seed the next window with the tail of the one just emitted.
			seed := window[len(window)-overlap:]
			window = append(make([]string, 0, maxTokens), seed...)
		}
	}

	// A window holding only the seed already went out in full with the
	// previous chunk; flush only when new tokens arrived after it.
	if len(chunks) == 0 || len(window) > overlap {
		flush()
	}

	return chunks
}
