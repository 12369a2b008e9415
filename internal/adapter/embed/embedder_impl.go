package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Dim is the vector dimension of the local embedder.
const Dim = 64

// EmbedderImpl is a deterministic local embedder: each token maps to a
// fixed pseudo-random unit contribution derived from its hash, and a
// text's vector is the normalized token sum. It stands in for an
// external embedding service behind the same interface; identical text
// always yields the identical vector, which the clustering engine's
// determinism guarantee relies on.
type EmbedderImpl struct{}

// New creates a local embedder.
func New() *EmbedderImpl {
	return &EmbedderImpl{}
}

// Embed returns one vector per input text.
func (e *EmbedderImpl) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func embedText(text string) []float64 {
	vec := make([]float64, Dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		state := h.Sum64()
		for d := 0; d < Dim; d++ {
			state = splitmix64(state)
			// Map to [-1, 1).
			vec[d] += float64(int64(state)) / math.MaxInt64
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for d := range vec {
		vec[d] /= norm
	}
	return vec
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
