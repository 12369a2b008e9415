package clustering

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/pkg/config"
)

func clusteringCfg() config.ClusteringConfig {
	return config.DefaultPipeline().Clustering
}

func record(id, text string, embedding []float64, volume int, opportunity, traffic float64) *entity.KeywordRecord {
	return &entity.KeywordRecord{
		ID:               id,
		Text:             text,
		Normalized:       text,
		Embedding:        embedding,
		Volume:           volume,
		Opportunity:      opportunity,
		TrafficPotential: traffic,
		Difficulty:       &entity.DifficultyComponents{Composite: 40},
	}
}

// Fixture: three espresso keywords sharing one embedding direction and
// one pottery keyword orthogonal to them. The espresso topic splits
// into two pages by lexical distance; the page hubs sit exactly at the
// sibling threshold.
func testRecords() []*entity.KeywordRecord {
	coffee := []float64{1, 0}
	pottery := []float64{0, 1}
	return []*entity.KeywordRecord{
		record("kw-a1", "best espresso machine guide", coffee, 1000, 90, 250),
		record("kw-a2", "best espresso machine guide 2026", coffee, 400, 50, 80),
		record("kw-b1", "best espresso machine guide reviews", coffee, 600, 70, 120),
		record("kw-c1", "ceramic pottery class", pottery, 300, 40, 60),
	}
}

func TestBuildTwoLevelHierarchy(t *testing.T) {
	c := New(clusteringCfg())
	topics, pages, links := c.Build("proj-1", testRecords())

	require.Len(t, topics, 2)
	require.Len(t, pages, 3)

	byLabel := make(map[string]*entity.ClusterNode)
	for _, topic := range topics {
		byLabel[topic.Label] = topic
	}

	// The espresso topic hub is the highest-opportunity member.
	espresso := byLabel["best espresso machine guide"]
	require.NotNil(t, espresso)
	assert.Equal(t, entity.LevelTopic, espresso.Level)
	assert.Equal(t, "kw-a1", espresso.HubKeywordID)
	assert.Equal(t, "topic-kw-a1", espresso.ID)
	assert.ElementsMatch(t, []string{"kw-a1", "kw-a2", "kw-b1"}, espresso.KeywordIDs)
	assert.Equal(t, 2000, espresso.TotalVolume)
	assert.Len(t, espresso.PageNodeIDs, 2)

	pottery := byLabel["ceramic pottery class"]
	require.NotNil(t, pottery)
	assert.Equal(t, []string{"kw-c1"}, pottery.KeywordIDs)

	// Page split inside the espresso topic: the 2026 variant stays with
	// the hub, the reviews keyword gets its own page.
	pageMembers := make(map[string][]string)
	for _, page := range pages {
		assert.Equal(t, entity.LevelPage, page.Level)
		pageMembers[page.ID] = page.KeywordIDs
	}
	assert.ElementsMatch(t, []string{"kw-a1", "kw-a2"}, pageMembers["page-kw-a1"])
	assert.Equal(t, []string{"kw-b1"}, pageMembers["page-kw-b1"])

	// The two espresso page hubs sit exactly at the sibling threshold.
	require.Len(t, links, 1)
	assert.Equal(t, "page-kw-a1", links[0].A)
	assert.Equal(t, "page-kw-b1", links[0].B)
	assert.InDelta(t, 0.90, links[0].Similarity, 1e-9)
}

func TestBuildDeterministicAcrossInputOrder(t *testing.T) {
	c := New(clusteringCfg())

	base := testRecords()
	topics1, pages1, links1 := c.Build("proj-1", base)

	shuffled := testRecords()
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	topics2, pages2, links2 := c.Build("proj-1", shuffled)

	assert.Equal(t, nodeIDs(topics1), nodeIDs(topics2))
	assert.Equal(t, nodeIDs(pages1), nodeIDs(pages2))
	assert.Equal(t, links1, links2)
	for i := range pages1 {
		assert.Equal(t, pages1[i].KeywordIDs, pages2[i].KeywordIDs)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	c := New(clusteringCfg())
	topics, pages, links := c.Build("proj-1", nil)
	assert.Nil(t, topics)
	assert.Nil(t, pages)
	assert.Nil(t, links)
}

func TestBuildSingleRecord(t *testing.T) {
	c := New(clusteringCfg())
	topics, pages, links := c.Build("proj-1", []*entity.KeywordRecord{
		record("kw-1", "standing desk", []float64{1, 0}, 500, 60, 100),
	})

	require.Len(t, topics, 1)
	require.Len(t, pages, 1)
	assert.Empty(t, links)
	assert.Equal(t, "kw-1", topics[0].HubKeywordID)
	assert.Equal(t, []string{pages[0].ID}, topics[0].PageNodeIDs)
}

func TestBuildBlockedByLeadToken(t *testing.T) {
	cfg := clusteringCfg()
	cfg.BlockAbove = 3 // force blocking with a small batch

	var records []*entity.KeywordRecord
	records = append(records,
		record("kw-1", "espresso beans", []float64{1, 0}, 100, 10, 10),
		record("kw-2", "espresso beans online", []float64{1, 0}, 100, 20, 10),
		record("kw-3", "pottery wheel", []float64{1, 0}, 100, 30, 10),
		record("kw-4", "pottery wheel kit", []float64{1, 0}, 100, 40, 10),
	)

	c := New(cfg)
	topics, _, _ := c.Build("proj-1", records)

	// Identical embeddings would form one topic, but blocking keeps the
	// lead-token buckets apart.
	require.Len(t, topics, 2)
	for _, topic := range topics {
		assert.Len(t, topic.KeywordIDs, 2)
	}
}

func TestSelectHub(t *testing.T) {
	t.Run("highest opportunity wins", func(t *testing.T) {
		hub := SelectHub([]*entity.KeywordRecord{
			record("kw-1", "seo tools", nil, 0, 50, 0),
			record("kw-2", "best seo tools", nil, 0, 80, 0),
		})
		assert.Equal(t, "kw-2", hub.ID)
	})

	t.Run("traffic breaks opportunity ties", func(t *testing.T) {
		hub := SelectHub([]*entity.KeywordRecord{
			record("kw-1", "seo tools", nil, 0, 80, 100),
			record("kw-2", "best seo tools", nil, 0, 80, 300),
		})
		assert.Equal(t, "kw-2", hub.ID)
	})

	t.Run("lexicographic order breaks full ties", func(t *testing.T) {
		hub := SelectHub([]*entity.KeywordRecord{
			record("kw-1", "best seo tools comparison", nil, 0, 80, 100),
			record("kw-2", "best seo tools", nil, 0, 80, 100),
		})
		assert.Equal(t, "best seo tools", hub.Normalized)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SelectHub(nil))
	})
}

func nodeIDs(nodes []*entity.ClusterNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
