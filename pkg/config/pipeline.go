package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceLimits configures one external data source.
type SourceLimits struct {
	RPM            int           `yaml:"rpm"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	HardLimit      int           `yaml:"hard_limit"`
	MaxRetries     int           `yaml:"max_retries"`
	BaseBackoff    time.Duration `yaml:"base_backoff"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CTRCurve maps result positions to expected click-through percentages
// for one SERP layout.
type CTRCurve struct {
	Name     string          `yaml:"name"`
	Features []string        `yaml:"features"` // feature-set signature the curve is keyed by
	Intents  []string        `yaml:"intents"`  // intents the curve applies to; empty = any
	ByRank   map[int]float64 `yaml:"by_rank"`  // position -> CTR percent
}

// ScoringConfig holds the scoring weights and curve table.
type ScoringConfig struct {
	SerpStrengthWeight float64            `yaml:"serp_strength_weight"`
	CompetitionWeight  float64            `yaml:"competition_weight"`
	CrowdingWeight     float64            `yaml:"crowding_weight"`
	ContentDepthWeight float64            `yaml:"content_depth_weight"`
	DefaultDifficulty  float64            `yaml:"default_difficulty"`
	TargetRank         int                `yaml:"target_rank"`
	FallbackCTR        float64            `yaml:"fallback_ctr"`
	IntentFitBoost     float64            `yaml:"intent_fit_boost"`
	BrandDomains       []string           `yaml:"brand_domains"`
	Curves             []CTRCurve         `yaml:"ctr_curves"`
	IntentMultipliers  map[string]float64 `yaml:"intent_multipliers"`
}

// ClusteringConfig holds the two-pass clustering thresholds.
type ClusteringConfig struct {
	SemanticWeight   float64 `yaml:"semantic_weight"`
	TopicThreshold   float64 `yaml:"topic_threshold"`
	PageThreshold    float64 `yaml:"page_threshold"`
	SiblingThreshold float64 `yaml:"sibling_threshold"`
	BlockAbove       int     `yaml:"block_above"`
}

// Pipeline is the static per-run configuration supplied at startup.
// The pipeline treats it as read-only.
type Pipeline struct {
	Sources    map[string]SourceLimits `yaml:"sources"`
	Scoring    ScoringConfig           `yaml:"scoring"`
	Clustering ClusteringConfig        `yaml:"clustering"`
}

// DefaultPipeline returns the built-in pipeline configuration.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Sources: map[string]SourceLimits{
			"serp": {
				RPM:            30,
				CacheTTL:       24 * time.Hour,
				HardLimit:      5000,
				MaxRetries:     3,
				BaseBackoff:    time.Second,
				RequestTimeout: 30 * time.Second,
			},
			"trends": {
				RPM:            60,
				CacheTTL:       7 * 24 * time.Hour,
				HardLimit:      10000,
				MaxRetries:     3,
				BaseBackoff:    time.Second,
				RequestTimeout: 30 * time.Second,
			},
			"suggest": {
				RPM:            20,
				CacheTTL:       7 * 24 * time.Hour,
				HardLimit:      2000,
				MaxRetries:     3,
				BaseBackoff:    time.Second,
				RequestTimeout: 15 * time.Second,
			},
		},
		Scoring: ScoringConfig{
			SerpStrengthWeight: 0.4,
			CompetitionWeight:  0.3,
			CrowdingWeight:     0.2,
			ContentDepthWeight: 0.1,
			DefaultDifficulty:  50,
			TargetRank:         3,
			FallbackCTR:        2.0,
			IntentFitBoost:     1.5,
			BrandDomains: []string{
				"wikipedia", "youtube", "amazon", "facebook", "twitter",
				"linkedin", "reddit", "instagram", "tiktok", "forbes",
				"nytimes", "cnn", "bbc", "medium", "quora",
			},
			Curves: []CTRCurve{
				{
					Name:     "informational_clean",
					Features: nil,
					Intents:  []string{"informational", "navigational"},
					ByRank: map[int]float64{
						1: 31.7, 2: 24.7, 3: 18.7, 4: 13.6, 5: 9.5,
						6: 6.9, 7: 5.1, 8: 3.8, 9: 2.8, 10: 2.2,
					},
				},
				{
					Name:     "informational_featured_snippet",
					Features: []string{"featured_snippet"},
					Intents:  nil,
					ByRank: map[int]float64{
						0: 8.6,
						1: 19.6, 2: 15.3, 3: 11.3, 4: 8.1, 5: 5.8,
						6: 4.3, 7: 3.2, 8: 2.4, 9: 1.8, 10: 1.4,
					},
				},
				{
					Name:     "commercial",
					Features: nil,
					Intents:  []string{"commercial", "transactional"},
					ByRank: map[int]float64{
						1: 27.6, 2: 15.8, 3: 11.3, 4: 8.4, 5: 6.1,
						6: 4.5, 7: 3.4, 8: 2.6, 9: 2.0, 10: 1.6,
					},
				},
				{
					Name:     "local_with_map",
					Features: []string{"map_pack"},
					Intents:  []string{"local"},
					ByRank: map[int]float64{
						1: 12.0, 2: 9.0, 3: 6.5, 4: 4.8, 5: 3.5,
						6: 2.6, 7: 1.9, 8: 1.4, 9: 1.0, 10: 0.8,
					},
				},
			},
			IntentMultipliers: map[string]float64{
				"informational": 1.0,
				"commercial":    1.0,
				"transactional": 1.0,
				"navigational":  1.0,
				"local":         1.0,
			},
		},
		Clustering: ClusteringConfig{
			SemanticWeight:   0.5,
			TopicThreshold:   0.78,
			PageThreshold:    0.88,
			SiblingThreshold: 0.90,
			BlockAbove:       2000,
		},
	}
}

// LoadPipeline reads the pipeline configuration from a YAML file,
// overlaying the built-in defaults. An empty path returns the defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	cfg := DefaultPipeline()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (p *Pipeline) Validate() error {
	for name, src := range p.Sources {
		if src.RPM <= 0 {
			return fmt.Errorf("source %q: rpm must be positive", name)
		}
		if src.HardLimit < 0 {
			return fmt.Errorf("source %q: hard_limit must not be negative", name)
		}
	}
	sum := p.Scoring.SerpStrengthWeight + p.Scoring.CompetitionWeight +
		p.Scoring.CrowdingWeight + p.Scoring.ContentDepthWeight
	if sum <= 0 {
		return fmt.Errorf("scoring weights must sum to a positive value, got %v", sum)
	}
	c := p.Clustering
	if c.TopicThreshold <= 0 || c.TopicThreshold >= 1 ||
		c.PageThreshold <= 0 || c.PageThreshold >= 1 {
		return fmt.Errorf("clustering thresholds must be in (0,1)")
	}
	return nil
}
