package scoring

import (
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/pkg/config"
)

// SelectCurve picks the click-through curve for a SERP layout. A curve
// matches exactly when every feature of its signature is present and
// its intent list covers the keyword's intent. Without an exact match
// the closest curve by feature-count distance wins; remaining ties go
// to the earlier curve in the table, keeping selection deterministic.
func SelectCurve(features []string, intent entity.Intent, cfg *config.ScoringConfig) *config.CTRCurve {
	if len(cfg.Curves) == 0 {
		return nil
	}

	present := make(map[string]bool, len(features))
	for _, f := range features {
		present[f] = true
	}

	var best *config.CTRCurve
	bestDistance := -1
	for i := range cfg.Curves {
		curve := &cfg.Curves[i]
		if !intentMatches(curve, intent) {
			continue
		}
		missing := 0
		for _, f := range curve.Features {
			if !present[f] {
				missing++
			}
		}
		if missing == 0 && len(curve.Features) > 0 {
			// Full signature present: the most specific match wins outright.
			return curve
		}
		distance := missing + abs(len(features)-len(curve.Features))
		if best == nil || distance < bestDistance {
			best = curve
			bestDistance = distance
		}
	}
	if best == nil {
		// No intent-compatible curve; fall back to feature distance alone.
		for i := range cfg.Curves {
			curve := &cfg.Curves[i]
			distance := abs(len(features) - len(curve.Features))
			if best == nil || distance < bestDistance {
				best = curve
				bestDistance = distance
			}
		}
	}
	return best
}

// TrafficPotential estimates the monthly clicks a keyword would yield
// at the configured target rank: volume times the curve's CTR for that
// position. Zero volume always yields zero.
func TrafficPotential(volume int, intent entity.Intent, features []string, cfg *config.ScoringConfig) float64 {
	if volume <= 0 {
		return 0
	}

	ctrPercent := cfg.FallbackCTR
	if curve := SelectCurve(features, intent, cfg); curve != nil {
		if v, ok := curve.ByRank[cfg.TargetRank]; ok {
			ctrPercent = v
		}
	}
	return float64(volume) * ctrPercent / 100.0
}

func intentMatches(curve *config.CTRCurve, intent entity.Intent) bool {
	if len(curve.Intents) == 0 {
		return true
	}
	for _, i := range curve.Intents {
		if entity.Intent(i) == intent {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
