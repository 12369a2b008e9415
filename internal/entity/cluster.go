package entity

// ClusterLevel is the level of a cluster node in the two-level
// hierarchy: topic clusters own page clusters.
type ClusterLevel string

const (
	LevelTopic ClusterLevel = "topic"
	LevelPage  ClusterLevel = "page"
)

// ClusterNode groups keyword records at one hierarchy level. Nodes are
// read-only after creation within a run.
type ClusterNode struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	Level        ClusterLevel `json:"level"`
	Label        string       `json:"label"` // hub keyword text
	HubKeywordID string       `json:"hub_keyword_id"`
	KeywordIDs   []string     `json:"keyword_ids"`
	PageNodeIDs  []string     `json:"page_node_ids,omitempty"` // topic level only

	TotalVolume    int     `json:"total_volume"`
	OpportunitySum float64 `json:"opportunity_sum"`
	AvgDifficulty  float64 `json:"avg_difficulty"`
}

// SiblingLink connects two page-level cluster nodes whose hubs are
// similar enough to recommend internal linking. Links are undirected;
// A is always the lexicographically smaller node ID.
type SiblingLink struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
}
