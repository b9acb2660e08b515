package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ticketpilot"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ticketpilot"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Inference
	InferenceProvider string `envconfig:"INFERENCE_PROVIDER" default:"ollama"`
	OllamaURL         string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	ClassifyModel     string `envconfig:"CLASSIFY_MODEL" default:"gemma2:9b"`
	ReplyModel        string `envconfig:"REPLY_MODEL" default:"gemma2:9b"`
	EmbedModel        string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`

	InferenceTimeoutSeconds int `envconfig:"INFERENCE_TIMEOUT_SECONDS" default:"60"`

	// Knowledge base
	KBDir          string  `envconfig:"KB_DIR" default:"kb"`
	ChunkMaxTokens int     `envconfig:"CHUNK_MAX_TOKENS" default:"300"`
	ChunkOverlap   float64 `envconfig:"CHUNK_OVERLAP" default:"0.3"`
	RetrieveTopK   int     `envconfig:"RETRIEVE_TOP_K" default:"3"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	TicketLogDir  string `envconfig:"TICKET_LOG_DIR" default:"data/logs/tickets"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.InferenceProvider != "ollama" && c.InferenceProvider != "gemini" {
		return fmt.Errorf("unknown INFERENCE_PROVIDER %q", c.InferenceProvider)
	}
	if c.InferenceProvider == "gemini" && c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= 1 {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0,1), got %v", c.ChunkOverlap)
	}
	if c.RetrieveTopK <= 0 {
		return fmt.Errorf("RETRIEVE_TOP_K must be positive, got %d", c.RetrieveTopK)
	}
	return nil
}

// InferenceTimeout is the per-call deadline for every inference request.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}
