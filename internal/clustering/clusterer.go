package clustering

import (
	"fmt"
	"sort"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/pkg/config"
)

// Clusterer groups scored keyword records into a two-level hierarchy:
// a coarse topic pass over semantic distance, then a tighter page pass
// inside each topic over a blend of semantic and lexical distance.
// Output is deterministic for identical inputs and configuration; the
// engine has no stochastic step and all ties break by fixed rules.
type Clusterer struct {
	cfg config.ClusteringConfig
}

func New(cfg config.ClusteringConfig) *Clusterer {
	return &Clusterer{cfg: cfg}
}

// Build clusters the records and returns topic nodes, page nodes and
// the sibling link graph between page nodes. Records must carry their
// embedding vectors; scoring output is used only for hub selection.
func (c *Clusterer) Build(projectID string, records []*entity.KeywordRecord) (topics, pages []*entity.ClusterNode, links []entity.SiblingLink) {
	if len(records) == 0 {
		return nil, nil, nil
	}

	// Anchor the index space so input order cannot influence merges.
	ordered := make([]*entity.KeywordRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Normalized != ordered[j].Normalized {
			return ordered[i].Normalized < ordered[j].Normalized
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, group := range c.topicGroups(ordered) {
		topicRecords := pick(ordered, group)
		topicHub := SelectHub(topicRecords)

		topicNode := &entity.ClusterNode{
			ID:           nodeID(entity.LevelTopic, topicHub.ID),
			ProjectID:    projectID,
			Level:        entity.LevelTopic,
			Label:        topicHub.Text,
			HubKeywordID: topicHub.ID,
			KeywordIDs:   ids(topicRecords),
		}
		aggregate(topicNode, topicRecords)

		pageDist := c.blendedDistance(topicRecords)
		for _, pageGroup := range agglomerate(pageDist, 1-c.cfg.PageThreshold) {
			pageRecords := pick(topicRecords, pageGroup)
			pageHub := SelectHub(pageRecords)

			pageNode := &entity.ClusterNode{
				ID:           nodeID(entity.LevelPage, pageHub.ID),
				ProjectID:    projectID,
				Level:        entity.LevelPage,
				Label:        pageHub.Text,
				HubKeywordID: pageHub.ID,
				KeywordIDs:   ids(pageRecords),
			}
			aggregate(pageNode, pageRecords)
			pages = append(pages, pageNode)
			topicNode.PageNodeIDs = append(topicNode.PageNodeIDs, pageNode.ID)
		}

		topics = append(topics, topicNode)
	}

	links = c.siblingLinks(ordered, pages)
	return topics, pages, links
}

// topicGroups runs the coarse pass. Batches above the configured size
// are pre-bucketed by a lexical blocking key (the first token) so the
// pairwise work stays bounded; each bucket clusters independently.
func (c *Clusterer) topicGroups(records []*entity.KeywordRecord) [][]int {
	if c.cfg.BlockAbove > 0 && len(records) > c.cfg.BlockAbove {
		return c.blockedTopicGroups(records)
	}
	return agglomerate(c.semanticDistance(records), 1-c.cfg.TopicThreshold)
}

func (c *Clusterer) blockedTopicGroups(records []*entity.KeywordRecord) [][]int {
	buckets := make(map[string][]int)
	var keys []string
	for i, r := range records {
		key := ""
		if tokens := r.Tokens(); len(tokens) > 0 {
			key = tokens[0]
		}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], i)
	}
	sort.Strings(keys)

	var groups [][]int
	for _, key := range keys {
		indices := buckets[key]
		bucketRecords := pick(records, indices)
		for _, local := range agglomerate(c.semanticDistance(bucketRecords), 1-c.cfg.TopicThreshold) {
			group := make([]int, len(local))
			for k, li := range local {
				group[k] = indices[li]
			}
			groups = append(groups, group)
		}
	}
	return groups
}

// semanticDistance is the topic-pass metric: cosine distance over the
// supplied embedding vectors.
func (c *Clusterer) semanticDistance(records []*entity.KeywordRecord) [][]float64 {
	n := len(records)
	d := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist := 1 - CosineSimilarity(records[i].Embedding, records[j].Embedding)
			d[i][j], d[j][i] = dist, dist
		}
	}
	return d
}

// blendedDistance is the page-pass metric: semantic and lexical
// distance combined by the configured weight.
func (c *Clusterer) blendedDistance(records []*entity.KeywordRecord) [][]float64 {
	w := c.cfg.SemanticWeight
	n := len(records)
	d := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			semantic := 1 - CosineSimilarity(records[i].Embedding, records[j].Embedding)
			lexical := 1 - Jaccard(records[i].Tokens(), records[j].Tokens())
			dist := w*semantic + (1-w)*lexical
			d[i][j], d[j][i] = dist, dist
		}
	}
	return d
}

// siblingLinks connects page nodes whose hub-to-hub blended similarity
// reaches the sibling threshold. The graph is undirected; each pair
// appears once with the lexicographically smaller node ID first.
func (c *Clusterer) siblingLinks(records []*entity.KeywordRecord, pages []*entity.ClusterNode) []entity.SiblingLink {
	byID := make(map[string]*entity.KeywordRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	w := c.cfg.SemanticWeight
	var links []entity.SiblingLink
	for i := 0; i < len(pages); i++ {
		for j := i + 1; j < len(pages); j++ {
			hubA, hubB := byID[pages[i].HubKeywordID], byID[pages[j].HubKeywordID]
			if hubA == nil || hubB == nil {
				continue
			}
			sim := w*CosineSimilarity(hubA.Embedding, hubB.Embedding) +
				(1-w)*Jaccard(hubA.Tokens(), hubB.Tokens())
			if sim >= c.cfg.SiblingThreshold {
				a, b := pages[i].ID, pages[j].ID
				if b < a {
					a, b = b, a
				}
				links = append(links, entity.SiblingLink{A: a, B: b, Similarity: sim})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].A != links[j].A {
			return links[i].A < links[j].A
		}
		return links[i].B < links[j].B
	})
	return links
}

func nodeID(level entity.ClusterLevel, hubID string) string {
	return fmt.Sprintf("%s-%s", level, hubID)
}

func newMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func pick(records []*entity.KeywordRecord, indices []int) []*entity.KeywordRecord {
	out := make([]*entity.KeywordRecord, len(indices))
	for i, idx := range indices {
		out[i] = records[idx]
	}
	return out
}

func ids(records []*entity.KeywordRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func aggregate(node *entity.ClusterNode, records []*entity.KeywordRecord) {
	var difficultySum float64
	for _, r := range records {
		node.TotalVolume += r.Volume
		node.OpportunitySum += r.Opportunity
		if r.Difficulty != nil {
			difficultySum += r.Difficulty.Composite
		}
	}
	node.AvgDifficulty = difficultySum / float64(len(records))
}
