// Package inference defines the seam between the pipeline and the model
// serving backends. Adapters (ollama, gemini) implement these interfaces.
package inference

import (
	"context"
	"fmt"
)

// Completion is the result of one text-generation call. HasText is the
// explicit "was usable text present" flag: generation backends are treated
// as unreliable and may answer with an empty or missing text field, which
// callers must turn into their own stage-local fallback.
type Completion struct {
	Text    string
	HasText bool
}

// Embedder turns text into a fixed-dimension vector. Indexing and retrieval
// must share one Embedder so both sides live in the same embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator runs a prompt through a named text-generation model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (Completion, error)
}

// EmbeddingFormatError reports an embedding response that carried no
// recognizable flat float vector. The indexer treats this as a hard failure
// for the affected chunk; it never substitutes a sentinel vector.
type EmbeddingFormatError struct {
	Detail string
}

func (e *EmbeddingFormatError) Error() string {
	return fmt.Sprintf("embedding response format: %s", e.Detail)
}
