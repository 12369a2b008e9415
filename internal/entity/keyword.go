package entity

import (
	"strings"
	"time"
)

// KeywordSource tags where a keyword candidate came from.
type KeywordSource string

const (
	SourceSeed       KeywordSource = "seed"
	SourceSuggest    KeywordSource = "suggest"
	SourceModifier   KeywordSource = "modifier"
	SourcePAA        KeywordSource = "paa"
	SourceRelated    KeywordSource = "related"
	SourceCompetitor KeywordSource = "competitor"
)

// Intent is the search-intent category of a keyword.
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentCommercial    Intent = "commercial"
	IntentTransactional Intent = "transactional"
	IntentNavigational  Intent = "navigational"
	IntentLocal         Intent = "local"
)

// TrendDirection classifies the recent search-interest trajectory.
type TrendDirection string

const (
	TrendRising    TrendDirection = "rising"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
	TrendUnknown   TrendDirection = "unknown"
)

// DifficultyComponents holds the four normalized difficulty sub-scores
// and the weighted composite. Sub-scores are in [0,1]; the composite is
// scaled to [0,100]. Estimated marks scores computed without a SERP
// snapshot (configured default, not measured).
type DifficultyComponents struct {
	SerpStrength float64 `json:"serp_strength"`
	Competition  float64 `json:"competition"`
	Crowding     float64 `json:"crowding"`
	ContentDepth float64 `json:"content_depth"`
	Composite    float64 `json:"composite"`
	Estimated    bool    `json:"estimated"`
}

// KeywordRecord is a keyword candidate with its enrichment fields and
// scores. Records are created during expansion, enriched during the
// metrics stage and scored afterwards; they are never deleted mid-run,
// only superseded by upserts keyed on ID.
type KeywordRecord struct {
	ID         string
	ProjectID  string
	Text       string
	Normalized string // lowercased, whitespace-collapsed form; dedup key
	Source     KeywordSource

	// Enrichment (metrics stage)
	Volume       int
	CPC          float64
	TrendSeries  []float64
	TrendDelta   float64
	SerpFeatures []string
	AdsDensity   float64
	Enriched     bool

	// Processing stage
	Intent         Intent
	TrendDirection TrendDirection
	Embedding      []float64

	// Scoring stage
	Difficulty       *DifficultyComponents
	TrafficPotential float64
	Opportunity      float64

	// Error flagging: a flagged record was skipped by a stage and
	// carries the reason instead of being silently dropped.
	Flagged    bool
	FlagReason string

	CreatedAt time.Time
}

// Tokens returns the lowercased whitespace tokens of the normalized
// text, falling back to the raw text when no normalized form is set.
func (k *KeywordRecord) Tokens() []string {
	text := k.Normalized
	if text == "" {
		text = k.Text
	}
	return strings.Fields(strings.ToLower(text))
}

// HasFeature reports whether the latest SERP capture for this keyword
// contained the given feature flag.
func (k *KeywordRecord) HasFeature(feature string) bool {
	for _, f := range k.SerpFeatures {
		if f == feature {
			return true
		}
	}
	return false
}
