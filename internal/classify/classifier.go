// Package classify maps ticket text onto the fixed category taxonomy with a
// normalized confidence score.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/jsonx"
	"ticketpilot/backend/internal/ticket"
)

// DefaultConfidence is the fixed neutral confidence reported whenever the
// model output was unusable.
const DefaultConfidence = 0.75

type Classifier struct {
	gen     inference.Generator
	model   string
	timeout time.Duration
}

func NewClassifier(gen inference.Generator, model string, timeout time.Duration) *Classifier {
	return &Classifier{gen: gen, model: model, timeout: timeout}
}

// Classify never fails: every malformed, truncated, or adversarial model
// output collapses to the default category with the default confidence, and
// an out-of-taxonomy category is forced back into the taxonomy. The distinct
// failure reasons are logged for triage even though the returned value is
// the same.
func (c *Classifier) Classify(ctx context.Context, subject, body string) ticket.ClassificationResult {
	prompt := buildPrompt(subject, body)

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	completion, err := c.gen.Generate(genCtx, c.model, prompt)
	if err != nil {
		return c.fallback(ctx, "request_failed", err)
	}
	if !completion.HasText {
		return c.fallback(ctx, "empty_response", nil)
	}

	raw, err := jsonx.ExtractObject(completion.Text)
	if err != nil {
		return c.fallback(ctx, "no_json_object", err)
	}

	var parsed struct {
		Category string             `json:"category"`
		Scores   map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return c.fallback(ctx, "invalid_json", err)
	}

	category := ticket.Category(strings.TrimSpace(parsed.Category))
	if category == "" {
		return c.fallback(ctx, "missing_category", nil)
	}

	if _, ok := parsed.Scores[string(category)]; !ok || len(parsed.Scores) == 0 {
		return c.fallback(ctx, "missing_scores", nil)
	}

	confidence := softmax(parsed.Scores)[string(category)]

	if !ticket.ValidCategory(category) {
		// Model drift or prompt injection in the ticket text; the category
		// is corrected but the confidence the model expressed is kept.
		slog.WarnContext(ctx, "classifier returned out-of-taxonomy category",
			"reason", "bad_category", "category", string(category))
		category = ticket.DefaultCategory
	}

	return ticket.ClassificationResult{Category: category, Confidence: confidence}
}

func (c *Classifier) fallback(ctx context.Context, reason string, err error) ticket.ClassificationResult {
	slog.WarnContext(ctx, "classification degraded to default", "reason", reason, "error", err)
	return ticket.ClassificationResult{
		Category:   ticket.DefaultCategory,
		Confidence: DefaultConfidence,
	}
}

// softmax turns arbitrary-scale raw scores into a probability distribution.
// The max is subtracted before exponentiation so large scores cannot
// overflow.
func softmax(scores map[string]float64) map[string]float64 {
	maxScore := math.Inf(-1)
	for _, v := range scores {
		if v > maxScore {
			maxScore = v
		}
	}

	sum := 0.0
	exp := make(map[string]float64, len(scores))
	for k, v := range scores {
		e := math.Exp(v - maxScore)
		exp[k] = e
		sum += e
	}

	for k := range exp {
		exp[k] /= sum
	}
	return exp
}

func buildPrompt(subject, body string) string {
	var b strings.Builder
	b.WriteString("You are a strict customer support ticket classifier.\n")
	b.WriteString("Categorize the user's issue into EXACTLY ONE of the following categories:\n\n")

	for _, def := range ticket.CategoryDefinitions {
		fmt.Fprintf(&b, "- %s: %s\n", def.Category, def.Definition)
	}

	b.WriteString("\nReturn ONLY strict JSON of the form:\n")
	b.WriteString(`{"category": "<category>", "scores": {"<category>": <raw score>, ...}}`)
	b.WriteString("\nThe scores map must contain a raw relevance score for every category.\n")

	b.WriteString("\n### Examples ###\n")
	b.WriteString("Email: \"My email verification link expired\" -> email_verification_issue\n")
	b.WriteString("Email: \"I want to cancel my subscription\" -> subscription_billing\n")
	b.WriteString("Email: \"Your app crashes when uploading files\" -> bug_report\n")
	b.WriteString("Email: \"How do I change my email address?\" -> account_update\n")
	b.WriteString("Email: \"My credit card was declined\" -> payment_failure\n")

	b.WriteString("\nNow classify this email:\n")
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Body: %s\n", body)
	return b.String()
}
