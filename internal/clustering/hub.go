package clustering

import "github.com/user/keyword-service/internal/entity"

// SelectHub picks the cluster's representative keyword: highest
// opportunity, ties broken by highest traffic potential, then by
// lexicographically smallest normalized text. The chain leaves no
// room for nondeterminism when scores are exactly equal.
func SelectHub(records []*entity.KeywordRecord) *entity.KeywordRecord {
	if len(records) == 0 {
		return nil
	}
	hub := records[0]
	for _, r := range records[1:] {
		if betterHub(r, hub) {
			hub = r
		}
	}
	return hub
}

func betterHub(a, b *entity.KeywordRecord) bool {
	if a.Opportunity != b.Opportunity {
		return a.Opportunity > b.Opportunity
	}
	if a.TrafficPotential != b.TrafficPotential {
		return a.TrafficPotential > b.TrafficPotential
	}
	return a.Normalized < b.Normalized
}
