// Package reply synthesizes grounded customer replies with a strict
// fallback policy.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/ticket"
)

// DeclineReply is returned without any inference call when retrieval found
// no grounding at all. Deterministic and safe for unanswerable queries.
const DeclineReply = "Hello, thank you for contacting us. We are unable to process your request as it falls outside the scope of our support knowledge base. Please reach out with queries related to our products or services. Best regards, Your Customer Support Team"

// HoldingReply substitutes for a generation response that carried no usable
// text. Generation failures degrade here instead of surfacing as errors.
const HoldingReply = "Hello, thank you for reaching out. We are looking into your request and will respond shortly."

type Generator struct {
	gen     inference.Generator
	model   string
	timeout time.Duration
}

func NewGenerator(gen inference.Generator, model string, timeout time.Duration) *Generator {
	return &Generator{gen: gen, model: model, timeout: timeout}
}

// Generate drafts a reply grounded strictly in the retrieved chunks. The
// result is always a single-line string and never an error: no grounding
// yields DeclineReply, an unusable or failed generation yields HoldingReply.
func (g *Generator) Generate(ctx context.Context, category ticket.Category, emailBody string, docs []ticket.RetrievedDoc) string {
	if len(docs) == 0 {
		return DeclineReply
	}

	prompt := buildPrompt(category, strings.TrimSpace(emailBody), docs)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.gen.Generate(genCtx, g.model, prompt)
	if err != nil {
		slog.WarnContext(ctx, "reply generation degraded to holding reply", "reason", "request_failed", "error", err)
		return HoldingReply
	}
	if !completion.HasText {
		slog.WarnContext(ctx, "reply generation degraded to holding reply", "reason", "empty_response")
		return HoldingReply
	}

	return Flatten(completion.Text)
}

// Flatten strips surrounding whitespace and collapses embedded newlines:
// replies are transported and logged as one line.
func Flatten(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func buildPrompt(category ticket.Category, emailBody string, docs []ticket.RetrievedDoc) string {
	trimmed := make([]string, 0, len(docs))
	for _, d := range docs {
		trimmed = append(trimmed, strings.TrimSpace(d.Content))
	}
	kbBlock := strings.Join(trimmed, "\n")

	var b strings.Builder
	b.WriteString("You are a customer support assistant.\n\n")
	fmt.Fprintf(&b, "The ticket category is: %s\n", category)
	fmt.Fprintf(&b, "The customer email is: %q\n\n", emailBody)

	b.WriteString("Use ONLY the information in the knowledge base block below.\n")
	b.WriteString("Do NOT invent steps that are not present in it.\n")
	b.WriteString("Do NOT mention the knowledge base or how you obtained the information.\n\n")

	b.WriteString("--- KB START ---\n")
	b.WriteString(kbBlock)
	b.WriteString("\n--- KB END ---\n\n")

	b.WriteString("Write a short subject line followed by a professional, natural reply that includes:\n")
	b.WriteString("- Greeting\n")
	b.WriteString("- Understanding of the user's issue\n")
	b.WriteString("- Steps or a solution based on the knowledge base\n")
	b.WriteString("- Offer of further assistance\n")
	b.WriteString("- Closing and signature\n")
	return b.String()
}
