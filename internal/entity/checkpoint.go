package entity

import (
	"encoding/json"
	"time"
)

// Stage is one step of the pipeline. Stages form a fixed total order;
// transitions are one-directional and never cycle back within a run.
type Stage string

const (
	StageCreated    Stage = "created"
	StageExpansion  Stage = "expansion"
	StageMetrics    Stage = "metrics"
	StageProcessing Stage = "processing"
	StageScoring    Stage = "scoring"
	StageClustering Stage = "clustering"
	StageBriefs     Stage = "briefs"
	StageCompleted  Stage = "completed"
)

// StageOrder is the fixed execution order of pipeline stages.
var StageOrder = []Stage{
	StageCreated,
	StageExpansion,
	StageMetrics,
	StageProcessing,
	StageScoring,
	StageClustering,
	StageBriefs,
	StageCompleted,
}

// Valid reports whether s is a member of the fixed stage set.
func (s Stage) Valid() bool {
	for _, o := range StageOrder {
		if o == s {
			return true
		}
	}
	return false
}

// Index returns the position of s in the stage order, or -1.
func (s Stage) Index() int {
	for i, o := range StageOrder {
		if o == s {
			return i
		}
	}
	return -1
}

// Next returns the stage strictly after s. ok is false when s is the
// final stage or not a valid stage.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

// Checkpoint records the last successfully completed stage of a
// project's pipeline run plus stage-specific resume data. A checkpoint
// is written strictly after its stage fully completes; resuming starts
// at the stage after the checkpointed one.
type Checkpoint struct {
	ProjectID string
	Stage     Stage
	Payload   json.RawMessage
	SavedAt   time.Time
}

// MetricsResume is the metrics-stage checkpoint payload: the keyword
// IDs still awaiting enrichment when the stage was interrupted.
type MetricsResume struct {
	PendingKeywordIDs []string `json:"pending_keyword_ids"`
}
