// Package pipeline sequences classification, retrieval, confidence fusion,
// and reply generation for one ticket.
package pipeline

import (
	"context"
	"log/slog"

	"ticketpilot/backend/internal/ticket"
)

type Classifier interface {
	Classify(ctx context.Context, subject, body string) ticket.ClassificationResult
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]ticket.RetrievedDoc, error)
}

type ReplyGenerator interface {
	Generate(ctx context.Context, category ticket.Category, emailBody string, docs []ticket.RetrievedDoc) string
}

// AuditSink receives the full processing record of each ticket as a
// fire-and-forget side effect. Implementations must not block the response
// path; failures are logged and dropped.
type AuditSink interface {
	Record(ctx context.Context, t ticket.Ticket, res *ticket.Result) error
}

type Service struct {
	classifier Classifier
	retriever  Retriever
	replier    ReplyGenerator
	audit      AuditSink
	topK       int
}

func NewService(c Classifier, r Retriever, g ReplyGenerator, audit AuditSink, topK int) *Service {
	return &Service{classifier: c, retriever: r, replier: g, audit: audit, topK: topK}
}

// Process runs one ticket through the pipeline. Classification and reply
// generation absorb their own model-output failures; only infrastructure
// errors (embedding service down, index unavailable) come back as errors,
// logged here with full context and passed to the boundary layer.
func (s *Service) Process(ctx context.Context, t ticket.Ticket) (*ticket.Result, error) {
	cls := s.classifier.Classify(ctx, t.Subject, t.Body)

	docs, err := s.retriever.Retrieve(ctx, t.Body, s.topK)
	if err != nil {
		slog.ErrorContext(ctx, "retrieval failed",
			"error", err,
			"sender", t.Sender,
			"subject", t.Subject,
			"category", string(cls.Category),
		)
		return nil, err
	}

	topSimilarity := 0.0
	if len(docs) > 0 {
		topSimilarity = docs[0].Similarity
	}
	overall := FuseConfidence(cls.Confidence, topSimilarity)

	replyText := s.replier.Generate(ctx, cls.Category, t.Body, docs)

	result := &ticket.Result{
		Reply:         replyText,
		Category:      cls.Category,
		Confidence:    overall,
		RetrievedDocs: docs,
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, t, result); err != nil {
			slog.WarnContext(ctx, "ticket audit record failed", "error", err, "sender", t.Sender)
		}
	}

	slog.InfoContext(ctx, "ticket processed",
		"category", string(result.Category),
		"confidence", result.Confidence,
		"retrieved", len(docs),
	)
	return result, nil
}
