// Package scoring holds the pure score computations: the per-scheme overall
// quality formulas and the statistical outlier filter applied across judges.
package scoring

import (
	"gonum.org/v1/gonum/stat"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// OutlierStrategy controls what happens to a score flagged as an outlier.
type OutlierStrategy string

const (
	// StrategyExclude drops outliers from the weighted average entirely.
	StrategyExclude OutlierStrategy = "exclude"
	// StrategyReduceWeight keeps outliers but shrinks their weight.
	StrategyReduceWeight OutlierStrategy = "reduce_weight"
)

// OutlierConfig tunes the filter. Zero values are replaced by the defaults,
// so an empty config behaves like DefaultOutlierConfig().
type OutlierConfig struct {
	SigmaThreshold        float64
	MinEvaluations        int
	Strategy              OutlierStrategy
	WeightReductionFactor float64
}

func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{
		SigmaThreshold:        2.0,
		MinEvaluations:        3,
		Strategy:              StrategyReduceWeight,
		WeightReductionFactor: 0.5,
	}
}

func (c OutlierConfig) withDefaults() OutlierConfig {
	def := DefaultOutlierConfig()
	if c.SigmaThreshold <= 0 {
		c.SigmaThreshold = def.SigmaThreshold
	}
	if c.MinEvaluations <= 0 {
		c.MinEvaluations = def.MinEvaluations
	}
	if c.Strategy != StrategyExclude && c.Strategy != StrategyReduceWeight {
		c.Strategy = def.Strategy
	}
	if c.WeightReductionFactor <= 0 {
		c.WeightReductionFactor = def.WeightReductionFactor
	}
	return c
}

// ScoreEntry is one judge's contribution entering the filter.
type ScoreEntry struct {
	EvaluationID domain.EvaluationID
	Score        float64
}

// ScoreDetail reports how one entry was weighted.
type ScoreDetail struct {
	EvaluationID domain.EvaluationID
	Score        float64
	Deviation    float64
	Weight       float64
	Outlier      bool
}

// FilterResult is the aggregate outcome for one sample.
type FilterResult struct {
	FilteredAverage float64
	OriginalAverage float64
	Mean            float64
	StdDev          float64
	OutlierCount    int
	Details         []ScoreDetail
}

// FilterOutliers computes a robust aggregate over one sample's scores.
// Scores deviating more than sigma*stddev from the mean are excluded or
// down-weighted depending on strategy. Below MinEvaluations no filtering is
// applied at all, so a sparsely judged sample keeps its plain average. Pure:
// identical inputs always yield identical outputs.
func FilterOutliers(entries []ScoreEntry, cfg OutlierConfig) FilterResult {
	cfg = cfg.withDefaults()

	if len(entries) == 0 {
		return FilterResult{}
	}

	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
	}

	mean := stat.Mean(scores, nil)
	// Sample standard deviation (n-1 divisor); undefined below two scores.
	stdDev := 0.0
	if len(scores) >= 2 {
		stdDev = stat.StdDev(scores, nil)
	}

	result := FilterResult{
		OriginalAverage: mean,
		Mean:            mean,
		StdDev:          stdDev,
		Details:         make([]ScoreDetail, len(entries)),
	}

	if len(entries) < cfg.MinEvaluations {
		// Too few judges to call any of them an outlier.
		result.FilteredAverage = mean
		for i, e := range entries {
			result.Details[i] = ScoreDetail{
				EvaluationID: e.EvaluationID,
				Score:        e.Score,
				Deviation:    abs(e.Score - mean),
				Weight:       1.0,
			}
		}
		return result
	}

	threshold := cfg.SigmaThreshold * stdDev
	var weightedSum, totalWeight float64

	for i, e := range entries {
		deviation := abs(e.Score - mean)
		detail := ScoreDetail{
			EvaluationID: e.EvaluationID,
			Score:        e.Score,
			Deviation:    deviation,
			Weight:       1.0,
		}

		if deviation > threshold {
			detail.Outlier = true
			result.OutlierCount++
			if cfg.Strategy == StrategyExclude {
				detail.Weight = 0
			} else {
				detail.Weight = cfg.WeightReductionFactor
			}
		}

		weightedSum += e.Score * detail.Weight
		totalWeight += detail.Weight
		result.Details[i] = detail
	}

	if totalWeight == 0 {
		// Every score excluded: fall back to the unfiltered average rather
		// than dividing by zero.
		result.FilteredAverage = mean
		return result
	}

	result.FilteredAverage = weightedSum / totalWeight
	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
