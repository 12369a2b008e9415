package serpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

const serpFixture = `{
	"organic_results": [
		{"link": "https://www.wikipedia.org/", "title": "Best running shoes - overview", "snippet": "long overview"},
		{"link": "https://blog.example/posts/shoes", "title": "my favorite shoes", "snippet": "opinions"}
	],
	"featured_snippet": {"title": "snippet"},
	"knowledge_graph": {"title": "running shoe"},
	"related_questions": [{"question": "what are the best running shoes?"}],
	"ads": [{}, {}, {}],
	"volume": 5400,
	"cpc": 1.25
}`

func TestFetchParsesSnapshot(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "us", r.URL.Query().Get("gl"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		w.Write([]byte(serpFixture))
	}))
	defer server.Close()

	p := New(server.Client(), server.URL, "secret")
	result, err := p.Fetch(context.Background(), "best running shoes",
		repository.ProviderParams{Geo: "US", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "best running shoes", gotQuery)

	assert.Equal(t, 5400, result.Volume)
	assert.InDelta(t, 1.25, result.CPC, 1e-9)

	snap := result.Snapshot
	require.NotNil(t, snap)
	require.Len(t, snap.Results, 2)
	assert.Equal(t, "www.wikipedia.org", snap.Results[0].Domain)
	assert.True(t, snap.Results[0].IsHomepage)
	assert.True(t, snap.Results[0].TitleMatch)
	assert.False(t, snap.Results[1].IsHomepage)
	assert.False(t, snap.Results[1].TitleMatch)

	assert.ElementsMatch(t, []string{
		entity.FeatureFeaturedSnippet, entity.FeatureKnowledgeGraph, entity.FeaturePAA,
	}, snap.Features)
	assert.Equal(t, 3, snap.AdsCount)
	assert.Equal(t, 1, snap.PAACount)
}

func TestFetchMapsStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, repository.ErrAuth},
		{http.StatusForbidden, repository.ErrAuth},
		{http.StatusTooManyRequests, repository.ErrRateLimited},
		{http.StatusInternalServerError, repository.ErrServer},
		{http.StatusBadGateway, repository.ErrServer},
		{http.StatusBadRequest, repository.ErrClient},
		{http.StatusNotFound, repository.ErrClient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := New(server.Client(), server.URL, "k")
			_, err := p.Fetch(context.Background(), "q", repository.ProviderParams{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	p := New(server.Client(), server.URL, "k")
	_, err := p.Fetch(context.Background(), "q", repository.ProviderParams{})
	assert.ErrorIs(t, err, repository.ErrServer)
}
