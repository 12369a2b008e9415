package clustering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"scaled copy", []float64{1, 2}, []float64{2, 4}, 1},
		{"mismatched lengths", []float64{1, 2}, []float64{1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"best", "seo", "tools"}, []string{"best", "seo", "tools"}, 1},
		{"disjoint", []string{"a", "b"}, []string{"c", "d"}, 0},
		{"partial", []string{"best", "seo", "tools"}, []string{"best", "seo", "tools", "2026"}, 0.75},
		{"duplicates collapse", []string{"seo", "seo"}, []string{"seo"}, 1},
		{"both empty", nil, nil, 0},
		{"one empty", []string{"seo"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
		})
	}
}

func TestAgglomerate(t *testing.T) {
	t.Run("merges below threshold only", func(t *testing.T) {
		// 0 and 1 are close; 2 is far from both.
		dist := [][]float64{
			{0, 0.05, 0.9},
			{0.05, 0, 0.9},
			{0.9, 0.9, 0},
		}
		groups := agglomerate(dist, 0.2)
		assert.Equal(t, [][]int{{0, 1}, {2}}, groups)
	})

	t.Run("average linkage blocks chain merges", func(t *testing.T) {
		// 1 sits between 0 and 2, but the average of {0,1} to 2 is too far.
		dist := [][]float64{
			{0, 0.10, 0.19},
			{0.10, 0, 0.30},
			{0.19, 0.30, 0},
		}
		groups := agglomerate(dist, 0.2)
		assert.Equal(t, [][]int{{0, 1}, {2}}, groups)
	})

	t.Run("singleton and empty input", func(t *testing.T) {
		assert.Equal(t, [][]int{{0}}, agglomerate([][]float64{{0}}, 0.5))
		assert.Nil(t, agglomerate(nil, 0.5))
	})
}
