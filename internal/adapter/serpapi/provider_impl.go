package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

const sourceName = "serp"

// ProviderImpl fetches SERP metrics from a SerpAPI-compatible
// endpoint. It only maps the wire response onto entity.ProviderResult
// and the error taxonomy; rate limiting, caching, quota and retries
// all live in the gateway.
type ProviderImpl struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates a SERP provider. A nil client falls back to a default
// with a 30s timeout.
func New(client *http.Client, baseURL, apiKey string) *ProviderImpl {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProviderImpl{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (p *ProviderImpl) Name() string { return sourceName }

// Fetch executes one SERP search and extracts result metadata and
// feature flags.
func (p *ProviderImpl) Fetch(ctx context.Context, query string, params repository.ProviderParams) (*entity.ProviderResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("api_key", p.apiKey)
	q.Set("gl", strings.ToLower(params.Geo))
	q.Set("hl", params.Language)
	q.Set("num", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrClient, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("serp request: %w", repository.ErrTimeout)
		}
		return nil, fmt.Errorf("serp request: %w: %v", repository.ErrServer, err)
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serp response: %w", repository.ErrServer)
	}

	return &entity.ProviderResult{
		Source:   sourceName,
		Snapshot: payload.toSnapshot(query, params),
		Volume:   payload.Volume,
		CPC:      payload.CPC,
	}, nil
}

func statusToError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("serp status %d: %w", code, repository.ErrAuth)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("serp status %d: %w", code, repository.ErrRateLimited)
	case code >= 500:
		return fmt.Errorf("serp status %d: %w", code, repository.ErrServer)
	default:
		return fmt.Errorf("serp status %d: %w", code, repository.ErrClient)
	}
}

type serpResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	FeaturedSnippet  json.RawMessage `json:"featured_snippet"`
	KnowledgeGraph   json.RawMessage `json:"knowledge_graph"`
	LocalResults     json.RawMessage `json:"local_results"`
	InlineVideos     json.RawMessage `json:"inline_videos"`
	InlineImages     json.RawMessage `json:"inline_images"`
	RelatedQuestions []struct {
		Question string `json:"question"`
	} `json:"related_questions"`
	Ads []json.RawMessage `json:"ads"`

	// Optional enrichment some plans include alongside the SERP.
	Volume int     `json:"volume"`
	CPC    float64 `json:"cpc"`
}

func (r *serpResponse) toSnapshot(query string, params repository.ProviderParams) *entity.SerpSnapshot {
	queryLower := strings.ToLower(query)

	snap := &entity.SerpSnapshot{
		Query:      query,
		Geo:        params.Geo,
		Language:   params.Language,
		AdsCount:   len(r.Ads),
		PAACount:   len(r.RelatedQuestions),
		Provider:   sourceName,
		CapturedAt: time.Now().UTC(),
	}

	for _, or := range r.OrganicResults {
		snap.Results = append(snap.Results, entity.SerpResult{
			Domain:     domainOf(or.Link),
			Title:      or.Title,
			Snippet:    or.Snippet,
			TitleMatch: strings.Contains(strings.ToLower(or.Title), queryLower),
			IsHomepage: isHomepage(or.Link),
		})
	}

	if len(r.FeaturedSnippet) > 0 {
		snap.Features = append(snap.Features, entity.FeatureFeaturedSnippet)
	}
	if len(r.KnowledgeGraph) > 0 {
		snap.Features = append(snap.Features, entity.FeatureKnowledgeGraph)
	}
	if len(r.LocalResults) > 0 {
		snap.Features = append(snap.Features, entity.FeatureMapPack)
	}
	if len(r.RelatedQuestions) > 0 {
		snap.Features = append(snap.Features, entity.FeaturePAA)
	}
	if len(r.InlineVideos) > 0 {
		snap.Features = append(snap.Features, entity.FeatureVideo)
	}
	if len(r.InlineImages) > 0 {
		snap.Features = append(snap.Features, entity.FeatureImagePack)
	}
	return snap
}

func domainOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func isHomepage(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Path == "" || u.Path == "/"
}
