package entity

import "time"

// Project holds the settings for one keyword research run.
type Project struct {
	ID           string
	Name         string
	Seeds        []string
	Geo          string
	Language     string
	ContentFocus Intent
	CreatedAt    time.Time
}

/// StageReport summarizes one completed stage: how many records it
// touched, how many it skipped or flagged, and the resource usage the
// stage incurred. A stage that skipped items still reports success;
// the flagged list makes the degradation visible instead of silent.
type StageReport struct {
	Stage           Stage         `json:"stage"`
	Duration        time.Duration `json:"duration"`
	Processed       int           `json:"processed"`
	Skipped         int           `json:"skipped"`
	Flagged         int           `json:"flagged"`
	FlaggedKeywords []string      `json:"flagged_keywords,omitempty"`
	APICalls        int           `json:"api_calls"`
	CacheHits       int           `json:"cache_hits"`
	Retries         int           `json:"retries"`
	DisabledSources []string      `json:"disabled_sources,omitempty"`
}

// RunResult is the immutable result set handed to brief and export
// collaborators at the briefs stage boundary.
type RunResult struct {
	ProjectID   string           `json:"project_id"`
	RunID       string           `json:"run_id"`
	Keywords    []*KeywordRecord `json:"keywords"`
	Topics      []*ClusterNode   `json:"topics"`
	Pages       []*ClusterNode   `json:"pages"`
	Links       []SiblingLink    `json:"links"`
	Reports     []StageReport    `json:"reports"`
	CompletedAt time.Time        `json:"completed_at"`
}
