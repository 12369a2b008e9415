package clustering

import "sort"

// agglomerate runs average-linkage agglomerative clustering over a
// precomputed pairwise distance matrix. Merging stops when no pair of
// clusters sits at or below maxDistance. The merge loop is fully
// deterministic: among equal-distance candidates the pair with the
// smallest (i, j) cluster indices merges first, so identical inputs
// always produce identical membership.
//
// Returns clusters as sorted index lists, ordered by smallest member.
func agglomerate(dist [][]float64, maxDistance float64) [][]int {
	n := len(dist)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return [][]int{{0}}
	}

	// Active cluster distance matrix, updated with the Lance-Williams
	// average-linkage rule on each merge.
	clusters := make([][]int, n)
	d := make([][]float64, n)
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		clusters[i] = []int{i}
		active[i] = true
		d[i] = make([]float64, n)
		copy(d[i], dist[i])
	}

	for {
		bestI, bestJ := -1, -1
		bestD := maxDistance
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d[i][j] < bestD || (d[i][j] == bestD && bestI == -1) {
					bestI, bestJ, bestD = i, j, d[i][j]
				}
			}
		}
		if bestI == -1 {
			break
		}

		si := float64(len(clusters[bestI]))
		sj := float64(len(clusters[bestJ]))
		for k := 0; k < n; k++ {
			if !active[k] || k == bestI || k == bestJ {
				continue
			}
			merged := (d[bestI][k]*si + d[bestJ][k]*sj) / (si + sj)
			d[bestI][k] = merged
			d[k][bestI] = merged
		}
		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		active[bestJ] = false
	}

	var out [][]int
	for i := 0; i < n; i++ {
		if active[i] {
			sort.Ints(clusters[i])
			out = append(out, clusters[i])
		}
	}
	return out
}
