package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

const sourceName = "suggest"

// Question, comparison and commercial modifiers prepended or appended
// to each seed during expansion.
var (
	prefixModifiers = []string{"how to", "what is", "best", "why"}
	suffixModifiers = []string{"guide", "tips", "vs", "free", "for beginners", "near me"}

	// Wildcard patterns also sent to the suggest endpoint, so the
	// completions cover question and comparison space and not just the
	// bare seed.
	wildcardPatterns = []string{"how to %s", "best %s", "%s near me", "%s vs"}
)

// gatewayFetcher is the slice of the access gateway the expander
// needs; it lets expansion share the suggest source's rate limit,
// cache and quota with the rest of the run.
type gatewayFetcher interface {
	Fetch(ctx context.Context, source, query string, params repository.ProviderParams) (*entity.ProviderResult, error)
}

// ExpanderImpl produces the candidate keyword set for a project:
// modifier expansion locally, suggestion lookups through the gateway.
type ExpanderImpl struct {
	gateway gatewayFetcher
}

// NewExpander creates an expander that issues suggest calls through
// the given gateway.
func NewExpander(gateway gatewayFetcher) *ExpanderImpl {
	return &ExpanderImpl{gateway: gateway}
}

// Expand turns the project's seed terms into a deduplicated candidate
// set. Suggest failures degrade to modifier-only expansion for the
// affected seed; expansion itself never fails a run unless every seed
// is unusable.
func (e *ExpanderImpl) Expand(ctx context.Context, project *entity.Project) ([]repository.Candidate, error) {
	seen := make(map[string]bool)
	var out []repository.Candidate

	add := func(text string, source entity.KeywordSource) {
		normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		out = append(out, repository.Candidate{Text: normalized, Source: source})
	}

	params := repository.ProviderParams{Geo: project.Geo, Language: project.Language}
	for _, seed := range project.Seeds {
		add(seed, entity.SourceSeed)

		for _, m := range prefixModifiers {
			add(m+" "+seed, entity.SourceModifier)
		}
		for _, m := range suffixModifiers {
			add(seed+" "+m, entity.SourceModifier)
		}

		queries := []string{seed}
		for _, p := range wildcardPatterns {
			queries = append(queries, fmt.Sprintf(p, seed))
		}

		degraded := false
		for _, query := range queries {
			result, err := e.gateway.Fetch(ctx, sourceName, query, params)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				if !degraded {
					degraded = true
					slog.Warn("Suggest expansion degraded for seed",
						"seed_fingerprint", fingerprintForLog(seed), "error", err)
				}
				continue
			}
			for _, s := range result.Suggestions {
				add(s, entity.SourceSuggest)
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("expansion produced no candidates from %d seeds", len(project.Seeds))
	}
	return out, nil
}

func fingerprintForLog(seed string) string {
	if len(seed) <= 2 {
		return "**"
	}
	return seed[:2] + strings.Repeat("*", len(seed)-2)
}

// ProviderImpl is the suggest-endpoint provider registered with the
// gateway under the "suggest" source tag.
type ProviderImpl struct {
	client  *http.Client
	baseURL string
}

// NewProvider creates a suggest provider. A nil client falls back to a
// default with a 15s timeout.
func NewProvider(client *http.Client, baseURL string) *ProviderImpl {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ProviderImpl{client: client, baseURL: baseURL}
}

func (p *ProviderImpl) Name() string { return sourceName }

// Fetch returns the autosuggest completions for a term. The endpoint
// answers with the classic two-element array: the echoed query and the
// suggestion list.
func (p *ProviderImpl) Fetch(ctx context.Context, query string, params repository.ProviderParams) (*entity.ProviderResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("hl", params.Language)
	q.Set("gl", strings.ToLower(params.Geo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrClient, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("suggest request: %w", repository.ErrTimeout)
		}
		return nil, fmt.Errorf("suggest request: %w: %v", repository.ErrServer, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("suggest status %d: %w", resp.StatusCode, repository.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("suggest status %d: %w", resp.StatusCode, repository.ErrServer)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("suggest status %d: %w", resp.StatusCode, repository.ErrClient)
	}

	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", repository.ErrServer)
	}

	var suggestions []string
	if len(payload) >= 2 {
		if err := json.Unmarshal(payload[1], &suggestions); err != nil {
			return nil, fmt.Errorf("decode suggest list: %w", repository.ErrServer)
		}
	}

	return &entity.ProviderResult{
		Source:      sourceName,
		Suggestions: suggestions,
	}, nil
}
