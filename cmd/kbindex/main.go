// kbindex maintains the knowledge-base index from the command line: split a
// raw article export into per-article files, or chunk and embed the articles
// into the vector store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	wstore "ticketpilot/backend/internal/adapter/weaviate"
	"ticketpilot/backend/internal/app"
	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/kb"
	"ticketpilot/backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "kbindex",
	Short: "Knowledge-base index maintenance",
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed, and index the knowledge base",
	Long: `Walks every article in the knowledge-base directory, splits it into
overlapping chunks, and embeds and inserts the chunks not yet present in the
vector store. Safe to re-run: indexed chunks are skipped.`,
	RunE: runIndex,
}

var splitOutputDir string

var splitCmd = &cobra.Command{
	Use:   "split [export file]",
	Short: "Split a raw article export into per-article files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

func init() {
	splitCmd.Flags().StringVarP(&splitOutputDir, "out", "o", "kb", "directory for the per-article files")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(splitCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return fmt.Errorf("weaviate client: %w", err)
	}
	store := wstore.NewStore(wClient)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	infer, err := app.NewInferenceClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("inference client: %w", err)
	}

	indexer := index.NewIndexer(kb.NewDirStore(cfg.KBDir), infer, store, cfg.ChunkMaxTokens, cfg.ChunkOverlap)
	stats, err := indexer.Run(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Indexed %d new chunks (%d documents, %d chunks total, %d already present)\n",
		stats.Indexed, stats.Documents, stats.Chunks, stats.Skipped)
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(filepath.Clean(args[0])) // #nosec G304 -- path comes from the CLI invocation
	if err != nil {
		return err
	}

	articles := kb.SplitArticles(string(raw))
	if len(articles) == 0 {
		return fmt.Errorf("no article headers found in %s", args[0])
	}

	if err := os.MkdirAll(splitOutputDir, 0o750); err != nil {
		return err
	}

	for _, a := range articles {
		stem := kb.CleanFilename(a.Title)
		if stem == "" {
			stem = fmt.Sprintf("article_%d", a.Index)
		}
		name := fmt.Sprintf("%02d_%s.txt", a.Index, stem)
		path := filepath.Join(splitOutputDir, name)
		if err := os.WriteFile(path, []byte(a.Content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		cmd.Println(name)
	}

	cmd.Printf("Split %d articles into %s\n", len(articles), splitOutputDir)
	return nil
}

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(slog.New(handler))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
