// Package gemini is the inference adapter for the Gemini API, selected with
// INFERENCE_PROVIDER=gemini.
package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ticketpilot/backend/internal/inference"
)

type Client struct {
	client     *genai.Client
	embedModel string
}

func NewClient(ctx context.Context, apiKey, embedModel string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if embedModel == "" {
		embedModel = "gemini-embedding-001"
	}
	return &Client{client: client, embedModel: embedModel}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", c.embedModel, "length", len(text))
	em := c.client.EmbeddingModel(c.embedModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &inference.EmbeddingFormatError{Detail: "empty embedding in response"}
	}
	return res.Embedding.Values, nil
}

func (c *Client) Generate(ctx context.Context, model, prompt string) (inference.Completion, error) {
	gm := c.client.GenerativeModel(model)
	res, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return inference.Completion{}, err
	}

	var b strings.Builder
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return inference.Completion{}, nil
	}
	return inference.Completion{Text: text, HasText: true}, nil
}
