package index_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/inference"
	"ticketpilot/backend/internal/kb"
)

type MockDocs struct{ mock.Mock }

func (m *MockDocs) Load(ctx context.Context) ([]kb.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kb.Document), args.Error(1)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockStore) InsertChunk(ctx context.Context, chunk index.Chunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func TestIndexer_Run(t *testing.T) {
	docsFixture := []kb.Document{
		{ID: "password.txt", Content: "reset your password via the login page"},
		{ID: "billing.txt", Content: "check your card details and retry"},
	}

	t.Run("Fresh Index", func(t *testing.T) {
		docs := new(MockDocs)
		embedder := new(MockEmbedder)
		store := new(MockStore)

		docs.On("Load", mock.Anything).Return(docsFixture, nil)
		store.On("ExistingIDs", mock.Anything).Return(map[string]struct{}{}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2}, nil)
		store.On("InsertChunk", mock.Anything, mock.MatchedBy(func(c index.Chunk) bool {
			return c.ID == "password.txt#0" && c.Index == 0 && len(c.Vector) == 2
		})).Return(nil).Once()
		store.On("InsertChunk", mock.Anything, mock.MatchedBy(func(c index.Chunk) bool {
			return c.ID == "billing.txt#0"
		})).Return(nil).Once()

		ix := index.NewIndexer(docs, embedder, store, 300, 0.3)
		stats, err := ix.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, stats.Documents)
		assert.Equal(t, 2, stats.Chunks)
		assert.Equal(t, 2, stats.Indexed)
		assert.Equal(t, 0, stats.Skipped)
		store.AssertExpectations(t)
	})

	t.Run("Rerun Is A No-Op", func(t *testing.T) {
		docs := new(MockDocs)
		embedder := new(MockEmbedder)
		store := new(MockStore)

		docs.On("Load", mock.Anything).Return(docsFixture, nil)
		store.On("ExistingIDs", mock.Anything).Return(map[string]struct{}{
			"password.txt#0": {},
			"billing.txt#0":  {},
		}, nil)

		ix := index.NewIndexer(docs, embedder, store, 300, 0.3)
		stats, err := ix.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, stats.Skipped)
		assert.Equal(t, 0, stats.Indexed)
		embedder.AssertNotCalled(t, "Embed")
		store.AssertNotCalled(t, "InsertChunk")
	})

	t.Run("Insert Race Counts As Skip", func(t *testing.T) {
		docs := new(MockDocs)
		embedder := new(MockEmbedder)
		store := new(MockStore)

		docs.On("Load", mock.Anything).Return(docsFixture[:1], nil)
		store.On("ExistingIDs", mock.Anything).Return(map[string]struct{}{}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
		store.On("InsertChunk", mock.Anything, mock.Anything).Return(index.ErrChunkExists)

		ix := index.NewIndexer(docs, embedder, store, 300, 0.3)
		stats, err := ix.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Skipped)
		assert.Equal(t, 0, stats.Indexed)
	})

	t.Run("Publish Mode", func(t *testing.T) {
		docs := new(MockDocs)
		embedder := new(MockEmbedder)
		store := new(MockStore)
		pub := new(MockPublisher)

		docs.On("Load", mock.Anything).Return(docsFixture[:1], nil)
		store.On("ExistingIDs", mock.Anything).Return(map[string]struct{}{}, nil)
		pub.On("Publish", config.TopicKBEmbed, mock.MatchedBy(func(body []byte) bool {
			var payload index.EmbedChunkPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				return false
			}
			return payload.ChunkID == "password.txt#0" && payload.DocID == "password.txt"
		})).Return(nil)

		ix := index.NewIndexer(docs, embedder, store, 300, 0.3).WithPublisher(pub)
		stats, err := ix.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Published)
		assert.Equal(t, 0, stats.Indexed)
		embedder.AssertNotCalled(t, "Embed")
		pub.AssertExpectations(t)
	})

	t.Run("Embedding Format Error Aborts", func(t *testing.T) {
		docs := new(MockDocs)
		embedder := new(MockEmbedder)
		store := new(MockStore)

		docs.On("Load", mock.Anything).Return(docsFixture, nil)
		store.On("ExistingIDs", mock.Anything).Return(map[string]struct{}{}, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).
			Return(nil, &inference.EmbeddingFormatError{Detail: "no embedding field"})

		ix := index.NewIndexer(docs, embedder, store, 300, 0.3)
		_, err := ix.Run(context.Background())
		require.Error(t, err)

		var formatErr *inference.EmbeddingFormatError
		assert.True(t, errors.As(err, &formatErr))
		store.AssertNotCalled(t, "InsertChunk")
	})

	t.Run("Missing KB Dir Aborts", func(t *testing.T) {
		docs := new(MockDocs)
		store := new(MockStore)

		docs.On("Load", mock.Anything).Return(nil, kb.ErrKBDirMissing)

		ix := index.NewIndexer(docs, new(MockEmbedder), store, 300, 0.3)
		_, err := ix.Run(context.Background())
		assert.ErrorIs(t, err, kb.ErrKBDirMissing)
		store.AssertNotCalled(t, "ExistingIDs")
	})
}
