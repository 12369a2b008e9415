package suggest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

type scriptedGateway struct {
	suggestions map[string][]string
	err         error
	calls       []string
}

func (g *scriptedGateway) Fetch(ctx context.Context, source, query string, params repository.ProviderParams) (*entity.ProviderResult, error) {
	g.calls = append(g.calls, query)
	if g.err != nil {
		return nil, g.err
	}
	return &entity.ProviderResult{Source: source, Suggestions: g.suggestions[query]}, nil
}

func testProject(seeds ...string) *entity.Project {
	return &entity.Project{Seeds: seeds, Geo: "US", Language: "en"}
}

func TestExpandCombinesModifiersAndSuggestions(t *testing.T) {
	gw := &scriptedGateway{suggestions: map[string][]string{
		"standing desk": {"standing desk converter", "standing desk mat"},
	}}
	expander := NewExpander(gw)

	candidates, err := expander.Expand(context.Background(), testProject("standing desk"))
	require.NoError(t, err)

	bySource := make(map[entity.KeywordSource][]string)
	for _, c := range candidates {
		bySource[c.Source] = append(bySource[c.Source], c.Text)
	}

	assert.Equal(t, []string{"standing desk"}, bySource[entity.SourceSeed])
	assert.Len(t, bySource[entity.SourceModifier], len(prefixModifiers)+len(suffixModifiers))
	assert.Contains(t, bySource[entity.SourceModifier], "how to standing desk")
	assert.Contains(t, bySource[entity.SourceModifier], "standing desk for beginners")
	assert.ElementsMatch(t,
		[]string{"standing desk converter", "standing desk mat"},
		bySource[entity.SourceSuggest])
	assert.Equal(t, []string{
		"standing desk",
		"how to standing desk",
		"best standing desk",
		"standing desk near me",
		"standing desk vs",
	}, gw.calls)
}

func TestExpandDeduplicatesAcrossSeeds(t *testing.T) {
	gw := &scriptedGateway{suggestions: map[string][]string{
		"Standing Desk": {"best standing desk"},
	}}
	expander := NewExpander(gw)

	// The second seed normalizes to the first; the suggestion collides
	// with a modifier expansion of the same seed.
	candidates, err := expander.Expand(context.Background(), testProject("Standing Desk", "standing  desk"))
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, c := range candidates {
		seen[c.Text]++
	}
	for text, n := range seen {
		assert.Equal(t, 1, n, "candidate %q emitted more than once", text)
	}
	// Modifier expansion saw "best standing desk" first, so the suggest
	// duplicate is dropped and the modifier attribution wins.
	for _, c := range candidates {
		if c.Text == "best standing desk" {
			assert.Equal(t, entity.SourceModifier, c.Source)
		}
	}
}

func TestExpandDegradesWhenSuggestFails(t *testing.T) {
	gw := &scriptedGateway{err: fmt.Errorf("suggest down: %w", repository.ErrServer)}
	expander := NewExpander(gw)

	candidates, err := expander.Expand(context.Background(), testProject("standing desk"))
	require.NoError(t, err)

	// Seed plus all modifier expansions, no suggestions.
	assert.Len(t, candidates, 1+len(prefixModifiers)+len(suffixModifiers))
	for _, c := range candidates {
		assert.NotEqual(t, entity.SourceSuggest, c.Source)
	}
}

func TestExpandPropagatesCancellation(t *testing.T) {
	gw := &scriptedGateway{err: context.Canceled}
	expander := NewExpander(gw)

	_, err := expander.Expand(context.Background(), testProject("standing desk"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandFailsWithNoUsableSeeds(t *testing.T) {
	expander := NewExpander(&scriptedGateway{})

	_, err := expander.Expand(context.Background(), testProject())
	assert.ErrorContains(t, err, "no candidates")
}

func TestProviderFetchParsesSuggestArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "standing desk", r.URL.Query().Get("q"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))
		fmt.Fprint(w, `["standing desk", ["standing desk converter", "standing desk amazon"]]`)
	}))
	defer server.Close()

	provider := NewProvider(server.Client(), server.URL)
	result, err := provider.Fetch(context.Background(), "standing desk",
		repository.ProviderParams{Geo: "US", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"standing desk converter", "standing desk amazon"}, result.Suggestions)
}

func TestProviderFetchMapsStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, repository.ErrRateLimited},
		{http.StatusBadGateway, repository.ErrServer},
		{http.StatusNotFound, repository.ErrClient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider := NewProvider(server.Client(), server.URL)
			_, err := provider.Fetch(context.Background(), "q", repository.ProviderParams{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
