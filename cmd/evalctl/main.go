// evalctl measures classification quality: run a labelled dataset through the
// classifier and retriever, or summarize a previous run.
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
	"ticketpilot/backend/internal/classify"
	"ticketpilot/backend/internal/config"
	"ticketpilot/backend/internal/eval"
	"ticketpilot/backend/internal/logger"
	"ticketpilot/backend/internal/retrieval"
)

var rootCmd = &cobra.Command{
	Use:   "evalctl",
	Short: "Classifier and retrieval evaluation",
}

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run [dataset.json]",
	Short: "Evaluate a labelled dataset and write results as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var reportCmd = &cobra.Command{
	Use:   "report [results.csv]",
	Short: "Summarize hit rates from an evaluation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "out", "o", "evaluation_results.csv", "output CSV path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cases, err := eval.LoadCases(args[0])
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(cases) == 0 {
		return fmt.Errorf("dataset %s is empty", args[0])
	}

	ctx := context.Background()

	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return fmt.Errorf("weaviate client: %w", err)
	}

	infer, err := app.NewInferenceClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("inference client: %w", err)
	}

	classifier := classify.NewClassifier(infer, cfg.ClassifyModel, cfg.InferenceTimeout())
	retriever := retrieval.NewService(infer, wstore.NewStore(wClient), cfg.InferenceTimeout())

	runner := eval.NewRunner(classifier, retriever, cfg.RetrieveTopK)
	outcomes, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(runOutput)) // #nosec G304 -- path comes from the CLI invocation
	if err != nil {
		return err
	}
	defer f.Close()
	if err := eval.WriteCSV(f, outcomes); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	printSummary(cmd, eval.Summarize(outcomes))
	cmd.Printf("Results saved to %s\n", runOutput)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(filepath.Clean(args[0])) // #nosec G304 -- path comes from the CLI invocation
	if err != nil {
		return err
	}
	defer f.Close()

	outcomes, err := eval.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}

	printSummary(cmd, eval.Summarize(outcomes))
	return nil
}

func printSummary(cmd *cobra.Command, s eval.Summary) {
	cmd.Printf("Overall hit accuracy: %.4f (%d cases)\n", s.Overall, s.Cases)
	cmd.Println()
	cmd.Println("Hit rate per category:")
	for _, c := range s.PerCategory {
		cmd.Printf("  %-26s %.4f (%d cases)\n", c.Category, c.HitRate, c.Cases)
	}
}

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(slog.New(handler))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
