package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketpilot/backend/internal/adapter/ollama"
	wstore "ticketpilot/backend/internal/adapter/weaviate"
	"ticketpilot/backend/internal/app"
	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/testutils"
)

func TestSmoke_Startup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	store := wstore.NewStore(suite.Weaviate)
	require.NoError(t, store.EnsureSchema(context.Background()))

	cfg := &config.Config{
		ClassifyModel:           "gemma2:9b",
		ReplyModel:              "gemma2:9b",
		InferenceTimeoutSeconds: 60,
		RetrieveTopK:            3,
		ChunkMaxTokens:          300,
		ChunkOverlap:            0.3,
		KBDir:                   t.TempDir(),
		TicketLogDir:            t.TempDir(),
		ServerPort:              8081,
	}
	infer := ollama.NewClient("http://localhost:11434", "mxbai-embed-large")

	a, err := app.New(cfg, suite.DB, store, suite.NSQ, infer)
	require.NoError(t, err)

	// Health
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Tickets table is migrated and empty
	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/tickets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	// Stats reaches Postgres and Weaviate
	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kb_chunks":0`)
}
