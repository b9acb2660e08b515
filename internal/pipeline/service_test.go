package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketpilot/backend/internal/ticket"
)

// --- Mocks ---

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, subject, body string) ticket.ClassificationResult {
	args := m.Called(ctx, subject, body)
	return args.Get(0).(ticket.ClassificationResult)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]ticket.RetrievedDoc, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ticket.RetrievedDoc), args.Error(1)
}

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Generate(ctx context.Context, category ticket.Category, emailBody string, docs []ticket.RetrievedDoc) string {
	args := m.Called(ctx, category, emailBody, docs)
	return args.String(0)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Record(ctx context.Context, t ticket.Ticket, res *ticket.Result) error {
	args := m.Called(ctx, t, res)
	return args.Error(0)
}

var sampleTicket = ticket.Ticket{
	Subject: "My card was declined twice",
	Body:    "I tried to pay and it failed",
	Sender:  "user@example.com",
}

func TestProcess(t *testing.T) {
	t.Run("Happy Path", func(t *testing.T) {
		classifier := new(MockClassifier)
		retriever := new(MockRetriever)
		replier := new(MockReplier)
		audit := new(MockAudit)

		docs := []ticket.RetrievedDoc{
			{ID: "billing.txt#0", Content: "update your card", Similarity: 0.9},
			{ID: "billing.txt#1", Content: "contact your bank", Similarity: 0.6},
		}

		classifier.On("Classify", mock.Anything, sampleTicket.Subject, sampleTicket.Body).
			Return(ticket.ClassificationResult{Category: ticket.CategoryPaymentFailure, Confidence: 0.8})
		retriever.On("Retrieve", mock.Anything, sampleTicket.Body, 3).Return(docs, nil)
		replier.On("Generate", mock.Anything, ticket.CategoryPaymentFailure, sampleTicket.Body, docs).
			Return("Subject: Payment issue Hello, please update your card.")
		audit.On("Record", mock.Anything, sampleTicket, mock.Anything).Return(nil)

		svc := NewService(classifier, retriever, replier, audit, 3)
		res, err := svc.Process(context.Background(), sampleTicket)
		require.NoError(t, err)

		assert.Equal(t, ticket.CategoryPaymentFailure, res.Category)
		// 0.7*0.8 + 0.3*0.9, uses the TOP similarity only
		assert.Equal(t, 0.83, res.Confidence)
		assert.Equal(t, docs, res.RetrievedDocs)
		assert.Contains(t, res.Reply, "update your card")

		classifier.AssertExpectations(t)
		retriever.AssertExpectations(t)
		replier.AssertExpectations(t)
		audit.AssertExpectations(t)
	})

	t.Run("No Docs Retrieved Means Zero Retrieval Confidence", func(t *testing.T) {
		classifier := new(MockClassifier)
		retriever := new(MockRetriever)
		replier := new(MockReplier)

		classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).
			Return(ticket.ClassificationResult{Category: ticket.CategoryGeneralQuestion, Confidence: 0.75})
		retriever.On("Retrieve", mock.Anything, mock.Anything, 3).Return([]ticket.RetrievedDoc{}, nil)
		replier.On("Generate", mock.Anything, ticket.CategoryGeneralQuestion, mock.Anything, mock.Anything).
			Return("decline")

		svc := NewService(classifier, retriever, replier, nil, 3)
		res, err := svc.Process(context.Background(), sampleTicket)
		require.NoError(t, err)
		assert.Equal(t, FuseConfidence(0.75, 0), res.Confidence)
	})

	t.Run("Retrieval Infrastructure Error Propagates", func(t *testing.T) {
		classifier := new(MockClassifier)
		retriever := new(MockRetriever)
		replier := new(MockReplier)

		classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).
			Return(ticket.ClassificationResult{Category: ticket.CategoryLogin, Confidence: 0.9})
		retriever.On("Retrieve", mock.Anything, mock.Anything, 3).
			Return(nil, errors.New("index unavailable"))

		svc := NewService(classifier, retriever, replier, nil, 3)
		_, err := svc.Process(context.Background(), sampleTicket)
		assert.Error(t, err)
		replier.AssertNotCalled(t, "Generate")
	})

	t.Run("Audit Failure Does Not Affect Result", func(t *testing.T) {
		classifier := new(MockClassifier)
		retriever := new(MockRetriever)
		replier := new(MockReplier)
		audit := new(MockAudit)

		classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).
			Return(ticket.ClassificationResult{Category: ticket.CategoryBugReport, Confidence: 0.5})
		retriever.On("Retrieve", mock.Anything, mock.Anything, 3).Return([]ticket.RetrievedDoc{}, nil)
		replier.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("reply text")
		audit.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

		svc := NewService(classifier, retriever, replier, audit, 3)
		res, err := svc.Process(context.Background(), sampleTicket)
		require.NoError(t, err)
		assert.Equal(t, "reply text", res.Reply)
	})
}
