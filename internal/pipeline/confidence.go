package pipeline

import "math"

// Classification correctness matters more for downstream reply quality than
// retrieval strength, so it carries the larger weight.
const (
	classifierWeight = 0.7
	retrievalWeight  = 0.3
)

// FuseConfidence blends classifier confidence and the best retrieval
// similarity into one advisory score, rounded to four decimals. Bounded in
// [0,1] for bounded inputs; it never gates generation.
func FuseConfidence(classifierConf, topSimilarity float64) float64 {
	overall := classifierWeight*classifierConf + retrievalWeight*topSimilarity
	return math.Round(overall*10000) / 10000
}
