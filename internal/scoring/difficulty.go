package scoring

import (
	"strings"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/pkg/config"
)

// snippetDepthReference is the snippet length (chars) treated as
// maximal content depth; shorter mean snippets scale linearly below it.
const snippetDepthReference = 200.0

// topResults bounds the slice of a snapshot used for strength and
// depth sub-scores.
const topResults = 5

// Difficulty computes the difficulty components for a keyword from its
// SERP snapshot. Sub-scores are normalized to [0,1] before weighting;
// the composite is scaled to [0,100]. A nil or empty snapshot yields
// the configured default difficulty with the Estimated flag set, so
// difficulty is always defined.
func Difficulty(snapshot *entity.SerpSnapshot, keyword string, cfg *config.ScoringConfig) *entity.DifficultyComponents {
	if snapshot == nil || len(snapshot.Results) == 0 {
		return &entity.DifficultyComponents{
			SerpStrength: 0.5,
			Competition:  0.5,
			Crowding:     0.5,
			ContentDepth: 0.5,
			Composite:    clamp(cfg.DefaultDifficulty, 0, 100),
			Estimated:    true,
		}
	}

	c := &entity.DifficultyComponents{
		SerpStrength: serpStrength(snapshot, cfg.BrandDomains),
		Competition:  competition(snapshot, keyword),
		Crowding:     crowding(snapshot),
		ContentDepth: contentDepth(snapshot),
	}

	weightSum := cfg.SerpStrengthWeight + cfg.CompetitionWeight + cfg.CrowdingWeight + cfg.ContentDepthWeight
	composite := (c.SerpStrength*cfg.SerpStrengthWeight +
		c.Competition*cfg.CompetitionWeight +
		c.Crowding*cfg.CrowdingWeight +
		c.ContentDepth*cfg.ContentDepthWeight) / weightSum

	c.Composite = clamp(composite*100, 0, 100)
	return c
}

// serpStrength measures result-page authority: homepage ratio and
// brand-domain presence in the top results, plus knowledge-graph and
// featured-snippet boosts.
func serpStrength(s *entity.SerpSnapshot, brandDomains []string) float64 {
	top := s.Results
	if len(top) > topResults {
		top = top[:topResults]
	}

	homepages, brands := 0, 0
	for _, r := range top {
		if r.IsHomepage {
			homepages++
		}
		if isBrandDomain(r.Domain, brandDomains) {
			brands++
		}
	}

	n := float64(len(top))
	score := float64(homepages)/n*0.30 + float64(brands)/n*0.40
	if s.HasFeature(entity.FeatureKnowledgeGraph) {
		score += 0.15
	}
	if s.HasFeature(entity.FeatureFeaturedSnippet) {
		score += 0.15
	}
	return clamp(score, 0, 1)
}

// competition measures how many top-N titles carry the query term:
// exact phrase matches weigh twice a partial all-words match.
func competition(s *entity.SerpSnapshot, keyword string) float64 {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	kwWords := strings.Fields(kw)

	exact, partial := 0, 0
	for _, r := range s.Results {
		title := strings.ToLower(r.Title)
		switch {
		case r.TitleMatch || (kw != "" && strings.Contains(title, kw)):
			exact++
		case containsAllWords(title, kwWords):
			partial++
		}
	}
	return clamp(float64(exact)*0.10+float64(partial)*0.05, 0, 1)
}

// crowding measures how much of the page is taken by ads and SERP
// features rather than organic results.
func crowding(s *entity.SerpSnapshot) float64 {
	featureScore := float64(len(s.Features)) * 0.10
	if featureScore > 0.5 {
		featureScore = 0.5
	}
	return clamp(s.AdsDensity()*0.5+featureScore, 0, 1)
}

// contentDepth proxies competing content length via mean snippet length.
func contentDepth(s *entity.SerpSnapshot) float64 {
	top := s.Results
	if len(top) > topResults {
		top = top[:topResults]
	}
	total := 0
	for _, r := range top {
		total += len(r.Snippet)
	}
	mean := float64(total) / float64(len(top))
	return clamp(mean/snippetDepthReference, 0, 1)
}

func isBrandDomain(domain string, brands []string) bool {
	d := strings.ToLower(domain)
	for _, b := range brands {
		if strings.Contains(d, b) {
			return true
		}
	}
	return false
}

func containsAllWords(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	present := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		present[w] = true
	}
	for _, w := range words {
		if !present[w] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
