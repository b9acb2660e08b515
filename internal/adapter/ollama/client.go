// Package ollama is the inference adapter for a local Ollama daemon.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ticketpilot/backend/internal/inference"
)

type Client struct {
	baseURL    string
	embedModel string
	client     *http.Client
}

func NewClient(baseURL, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL overrides the daemon address, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// Embed calls /api/embeddings and returns the vector. The daemon has shipped
// the vector under different field names across versions ("embedding" flat,
// "embeddings" nested), so both are probed; anything else is an
// *inference.EmbeddingFormatError.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  c.embedModel,
		"prompt": text,
	}
	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ollama embeddings api error: %d", resp.StatusCode)
	}

	var result struct {
		Embedding  []float32   `json:"embedding"`
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &inference.EmbeddingFormatError{Detail: fmt.Sprintf("invalid json: %v", err)}
	}

	switch {
	case len(result.Embedding) > 0:
		return result.Embedding, nil
	case len(result.Embeddings) > 0 && len(result.Embeddings[0]) > 0:
		return result.Embeddings[0], nil
	}
	return nil, &inference.EmbeddingFormatError{Detail: "no vector field in response"}
}

// Generate calls /api/generate with streaming disabled. The text is probed
// under the field names the daemon has used ("response", "content", "text");
// a missing or blank field yields Completion{HasText: false}, not an error.
func (c *Client) Generate(ctx context.Context, model, prompt string) (inference.Completion, error) {
	reqBody := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return inference.Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return inference.Completion{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return inference.Completion{}, fmt.Errorf("ollama generate api error: %d", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
		Content  string `json:"content"`
		Text     string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return inference.Completion{}, nil
	}

	for _, candidate := range []string{result.Response, result.Content, result.Text} {
		if strings.TrimSpace(candidate) != "" {
			return inference.Completion{Text: candidate, HasText: true}, nil
		}
	}
	return inference.Completion{}, nil
}
