package entity

import "time"

// SERP feature flags as stored on snapshots and keyword records.
const (
	FeatureFeaturedSnippet = "featured_snippet"
	FeatureKnowledgeGraph  = "knowledge_graph"
	FeatureMapPack         = "map_pack"
	FeaturePAA             = "people_also_ask"
	FeatureVideo           = "video"
	FeatureImagePack       = "image_pack"
)

// SerpResult is the metadata of one organic result in a snapshot.
type SerpResult struct {
	Domain     string `json:"domain"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	TitleMatch bool   `json:"title_match"` // title contains the query as an exact phrase
	IsHomepage bool   `json:"is_homepage"`
}

// SerpSnapshot is the per-keyword capture of top-N result metadata and
// feature flags. Snapshots are immutable once written; a run keeps one
// latest snapshot per keyword.
type SerpSnapshot struct {
	ProjectID  string       `json:"project_id"`
	KeywordID  string       `json:"keyword_id"`
	Query      string       `json:"query"`
	Geo        string       `json:"geo"`
	Language   string       `json:"language"`
	Results    []SerpResult `json:"results"`
	Features   []string     `json:"features"`
	AdsCount   int          `json:"ads_count"`
	PAACount   int          `json:"paa_count"`
	Provider   string       `json:"provider"`
	CapturedAt time.Time    `json:"captured_at"`
}

// HasFeature reports whether the snapshot contains the given flag.
func (s *SerpSnapshot) HasFeature(feature string) bool {
	for _, f := range s.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// AdsDensity normalizes the ad count to a [0,1] scale against a
// four-slot SERP ad layout.
func (s *SerpSnapshot) AdsDensity() float64 {
	d := float64(s.AdsCount) / 4.0
	if d > 1 {
		return 1
	}
	return d
}

// ProviderResult is what one gateway fetch yields: the snapshot plus
// whatever volume/CPC/trend data the source reports. Fields a source
// does not supply stay zero.
type ProviderResult struct {
	Source      string        `json:"source"`
	Snapshot    *SerpSnapshot `json:"snapshot,omitempty"`
	Volume      int           `json:"volume"`
	CPC         float64       `json:"cpc"`
	TrendSeries []float64     `json:"trend_series,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
}
