package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ticketpilot/backend/internal/index"
)

// Mocks

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChunkStore struct{ mock.Mock }

func (m *MockChunkStore) HasChunk(ctx context.Context, chunkID string) (bool, error) {
	args := m.Called(ctx, chunkID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChunkStore) InsertChunk(ctx context.Context, chunk index.Chunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

type MockIndexRunner struct{ mock.Mock }

func (m *MockIndexRunner) Run(ctx context.Context) (index.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(index.Stats), args.Error(1)
}
