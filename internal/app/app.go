package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	kbfeature "ticketpilot/backend/features/kb"
	"ticketpilot/backend/features/stats"
	tfeature "ticketpilot/backend/features/ticket"
	"ticketpilot/backend/internal/audit"
	"ticketpilot/backend/internal/classify"
	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/kb"
	"ticketpilot/backend/internal/middleware"
	"ticketpilot/backend/internal/pipeline"
	"ticketpilot/backend/internal/reply"
	"ticketpilot/backend/internal/retrieval"
	"ticketpilot/backend/internal/worker"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler         http.Handler
	Pipeline        *pipeline.Service
	ReindexConsumer *worker.ReindexConsumer
	EmbedConsumer   *worker.EmbedConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	infer InferenceClient,
) (*App, error) {
	// Pipeline stages
	classifier := classify.NewClassifier(infer, cfg.ClassifyModel, cfg.InferenceTimeout())
	retriever := retrieval.NewService(infer, vecStore, cfg.InferenceTimeout())
	replier := reply.NewGenerator(infer, cfg.ReplyModel, cfg.InferenceTimeout())
	auditLog := audit.NewDirTicketLogger(cfg.TicketLogDir)

	pipelineSvc := pipeline.NewService(classifier, retriever, replier, auditLog, cfg.RetrieveTopK)

	// Feature: Ticket
	ticketRepo := tfeature.NewPostgresRepo(db)
	ticketHandler := tfeature.NewHandler(pipelineSvc, ticketRepo)

	// Feature: Stats
	statsHandler := stats.NewHandler(ticketRepo, vecStore)

	// Feature: KB maintenance
	kbHandler := kbfeature.NewHandler(taskPub)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /tickets/process", middleware.CorrelationID(enableCORS(ticketHandler.Process)))
	mux.Handle("GET /tickets", middleware.CorrelationID(enableCORS(ticketHandler.List)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.Handle("POST /kb/reindex", middleware.CorrelationID(enableCORS(kbHandler.Reindex)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Workers
	docStore := kb.NewDirStore(cfg.KBDir)
	indexer := index.NewIndexer(docStore, infer, vecStore, cfg.ChunkMaxTokens, cfg.ChunkOverlap).WithPublisher(taskPub)

	reindexConsumer := worker.NewReindexConsumer(indexer)
	embedConsumer := worker.NewEmbedConsumer(infer, vecStore, cfg.InferenceTimeout())

	return &App{
		Handler:         mux,
		Pipeline:        pipelineSvc,
		ReindexConsumer: reindexConsumer,
		EmbedConsumer:   embedConsumer,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
