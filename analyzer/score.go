package analyzer

import "math"

// Weights for the report's overall score. They sum to 1.
const (
	weightPerformance   = 0.3
	weightAccessibility = 0.2
	weightSEO           = 0.3
	weightBestPractices = 0.2
)

// WeightedOverall is the overall score of an analysis report:
// round(sum(score_i * weight_i) * 100) over 0-1 category scores.
func WeightedOverall(performance, accessibility, seo, bestPractices float64) int {
	sum := performance*weightPerformance +
		accessibility*weightAccessibility +
		seo*weightSEO +
		bestPractices*weightBestPractices
	return int(math.Round(sum * 100))
}

// AverageOverall is the overall score returned by the status endpoint:
// the four 0-1 category scores summed and multiplied by 25, which is their
// mean on a 0-100 scale.
func AverageOverall(performance, accessibility, seo, bestPractices float64) int {
	return int(math.Round((performance + accessibility + seo + bestPractices) * 25))
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}
