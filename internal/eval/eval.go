// Package eval measures classifier and retrieval quality against a labelled
// ticket dataset.
package eval

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"ticketpilot/backend/internal/pipeline"
	"ticketpilot/backend/internal/ticket"
)

// Case is one labelled test email.
type Case struct {
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	ExpectedCategory string `json:"expected_category"`
}

// Outcome is one evaluated case.
type Outcome struct {
	Subject           string
	ExpectedCategory  string
	PredictedCategory string
	ClassifierConf    float64
	RetrievalConf     float64
	OverallConf       float64
	Hit               int
}

type Classifier interface {
	Classify(ctx context.Context, subject, body string) ticket.ClassificationResult
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]ticket.RetrievedDoc, error)
}

type Runner struct {
	classifier Classifier
	retriever  Retriever
	topK       int
}

func NewRunner(c Classifier, r Retriever, topK int) *Runner {
	return &Runner{classifier: c, retriever: r, topK: topK}
}

// Run evaluates every case. Retrieval confidence is the best similarity among
// the retrieved chunks, zero when nothing comes back.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(cases))
	for i, c := range cases {
		cls := r.classifier.Classify(ctx, c.Subject, c.Body)

		docs, err := r.retriever.Retrieve(ctx, c.Body, r.topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve for case %d: %w", i+1, err)
		}
		retrievalConf := 0.0
		for _, d := range docs {
			if d.Similarity > retrievalConf {
				retrievalConf = d.Similarity
			}
		}

		hit := 0
		if string(cls.Category) == c.ExpectedCategory {
			hit = 1
		}
		outcomes = append(outcomes, Outcome{
			Subject:           c.Subject,
			ExpectedCategory:  c.ExpectedCategory,
			PredictedCategory: string(cls.Category),
			ClassifierConf:    cls.Confidence,
			RetrievalConf:     retrievalConf,
			OverallConf:       pipeline.FuseConfidence(cls.Confidence, retrievalConf),
			Hit:               hit,
		})
		slog.InfoContext(ctx, "case evaluated",
			"case", i+1,
			"expected", c.ExpectedCategory,
			"predicted", string(cls.Category),
			"hit", hit,
		)
	}
	return outcomes, nil
}

// LoadCases reads a JSON array of labelled emails.
func LoadCases(path string) ([]Case, error) {
	raw, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from the CLI invocation
	if err != nil {
		return nil, err
	}
	var cases []Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return cases, nil
}

var csvHeader = []string{"subject", "expected_category", "predicted_category", "classifier_conf", "retrieval_conf", "overall_conf", "hit"}

func WriteCSV(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range outcomes {
		row := []string{
			o.Subject,
			o.ExpectedCategory,
			o.PredictedCategory,
			strconv.FormatFloat(o.ClassifierConf, 'f', -1, 64),
			strconv.FormatFloat(o.RetrievalConf, 'f', -1, 64),
			strconv.FormatFloat(o.OverallConf, 'f', -1, 64),
			strconv.Itoa(o.Hit),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) ([]Outcome, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty results file")
	}

	var outcomes []Outcome
	for _, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("malformed row: %v", rec)
		}
		classifierConf, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, err
		}
		retrievalConf, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, err
		}
		overallConf, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, err
		}
		hit, err := strconv.Atoi(rec[6])
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, Outcome{
			Subject:           rec[0],
			ExpectedCategory:  rec[1],
			PredictedCategory: rec[2],
			ClassifierConf:    classifierConf,
			RetrievalConf:     retrievalConf,
			OverallConf:       overallConf,
			Hit:               hit,
		})
	}
	return outcomes, nil
}

// Summary aggregates outcomes into hit rates.
type Summary struct {
	Cases       int
	Overall     float64
	PerCategory []CategoryRate
}

type CategoryRate struct {
	Category string
	Cases    int
	HitRate  float64
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Cases: len(outcomes)}
	if len(outcomes) == 0 {
		return s
	}

	hits := 0
	perCatHits := map[string]int{}
	perCatTotal := map[string]int{}
	for _, o := range outcomes {
		hits += o.Hit
		perCatHits[o.ExpectedCategory] += o.Hit
		perCatTotal[o.ExpectedCategory]++
	}
	s.Overall = float64(hits) / float64(len(outcomes))

	categories := make([]string, 0, len(perCatTotal))
	for c := range perCatTotal {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		s.PerCategory = append(s.PerCategory, CategoryRate{
			Category: c,
			Cases:    perCatTotal[c],
			HitRate:  float64(perCatHits[c]) / float64(perCatTotal[c]),
		})
	}
	return s
}
