package scoring

import (
	"math"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/pkg/config"
)

// knowledgeGraphCrowding is the brand-crowding penalty added to the
// opportunity denominator when a knowledge graph occupies the SERP.
const knowledgeGraphCrowding = 10.0

// RawOpportunity computes the unnormalized opportunity score:
//
//	log1p(traffic · cpcWeight · intentFit) / (difficulty + brandCrowding)
//
// The denominator is floored at 1. Commercial and transactional
// keywords get a CPC-driven boost of up to 3x; a keyword whose intent
// matches the project's content focus gets the configured fit boost.
// Zero traffic always yields zero.
func RawOpportunity(traffic, difficulty, cpc float64, intent, contentFocus entity.Intent,
	features []string, cfg *config.ScoringConfig) float64 {

	if traffic <= 0 {
		return 0
	}

	cpcWeight := 1.0
	if intent == entity.IntentCommercial || intent == entity.IntentTransactional {
		cpcWeight = 1.0 + math.Min(cpc/10.0, 2.0)
	}
	if m, ok := cfg.IntentMultipliers[string(intent)]; ok {
		cpcWeight *= m
	}

	intentFit := 1.0
	if intent == contentFocus {
		intentFit = cfg.IntentFitBoost
	}

	brandCrowding := 0.0
	for _, f := range features {
		if f == entity.FeatureKnowledgeGraph {
			brandCrowding = knowledgeGraphCrowding
			break
		}
	}

	denominator := difficulty + brandCrowding
	if denominator < 1 {
		denominator = 1
	}
	return math.Log1p(traffic*cpcWeight*intentFit) / denominator
}

// NormalizeOpportunity min-max scales raw opportunity scores to
// [0,100] across one run's batch. Scores are therefore comparable only
// within a single run, never across runs: each run re-anchors the
// scale to its own best and worst keywords. A raw zero stays zero.
// When every nonzero raw score is equal they all map to 50.
func NormalizeOpportunity(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range raw {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	for i, v := range raw {
		switch {
		case v == 0:
			out[i] = 0
		case max == min:
			out[i] = 50
		default:
			out[i] = (v - min) / (max - min) * 100
		}
	}
	return out
}
