package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

const sourceName = "trends"

// ProviderImpl fetches search-interest time series from a trends
// endpoint. Like the SERP provider it only translates the wire
// response; resilience lives in the gateway.
type ProviderImpl struct {
	client  *http.Client
	baseURL string
}

// New creates a trends provider. A nil client falls back to a default
// with a 30s timeout.
func New(client *http.Client, baseURL string) *ProviderImpl {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProviderImpl{client: client, baseURL: baseURL}
}

func (p *ProviderImpl) Name() string { return sourceName }

// Fetch returns the recent interest series for a keyword.
func (p *ProviderImpl) Fetch(ctx context.Context, query string, params repository.ProviderParams) (*entity.ProviderResult, error) {
	q := url.Values{}
	q.Set("keyword", query)
	q.Set("geo", params.Geo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrClient, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("trends request: %w", repository.ErrTimeout)
		}
		return nil, fmt.Errorf("trends request: %w: %v", repository.ErrServer, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("trends status %d: %w", resp.StatusCode, repository.ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("trends status %d: %w", resp.StatusCode, repository.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("trends status %d: %w", resp.StatusCode, repository.ErrServer)
	default:
		return nil, fmt.Errorf("trends status %d: %w", resp.StatusCode, repository.ErrClient)
	}

	var payload struct {
		Series []float64 `json:"series"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode trends response: %w", repository.ErrServer)
	}

	return &entity.ProviderResult{
		Source:      sourceName,
		TrendSeries: payload.Series,
	}, nil
}
