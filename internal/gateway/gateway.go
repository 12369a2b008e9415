package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
	"github.com/user/keyword-service/pkg/config"
	"github.com/user/keyword-service/pkg/metrics"
	"github.com/user/keyword-service/pkg/utils"
)

// timeoutAttempts caps timeout retries at a single extra attempt,
// independent of the configured rate-limit retry ceiling.
const timeoutAttempts = 2

type sourceRuntime struct {
	provider repository.MetricsProvider
	bucket   *TokenBucket
	limits   config.SourceLimits
}

// Stats are the run-scoped call counters a gateway accumulates.
type Stats struct {
	APICalls  int
	CacheHits int
	Retries   int
}

// Gateway wraps external data sources with rate limiting, cache-aside
// caching, bounded retry with exponential backoff, quota enforcement
// and an audit trail. One gateway instance serves one project run and
// owns that run's quota ledger and token buckets; the cache store may
// be shared globally since cached responses are not project-specific.
type Gateway struct {
	projectID string
	sources   map[string]*sourceRuntime
	ledger    *QuotaLedger
	cache     repository.CacheRepository
	audit     repository.AuditRepository

	mu       sync.Mutex
	disabled map[string]error
	stats    Stats

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// New creates a gateway for one project run. Each provider gets its own
// token bucket and quota allocation from the pipeline config; providers
// without a config entry are rejected up front.
func New(projectID string, cfg *config.Pipeline, cache repository.CacheRepository,
	audit repository.AuditRepository, providers ...repository.MetricsProvider) (*Gateway, error) {

	limits := make(map[string]int, len(providers))
	sources := make(map[string]*sourceRuntime, len(providers))
	for _, p := range providers {
		sl, ok := cfg.Sources[p.Name()]
		if !ok {
			return nil, fmt.Errorf("no source config for provider %q", p.Name())
		}
		sources[p.Name()] = &sourceRuntime{
			provider: p,
			bucket:   NewTokenBucket(sl.RPM),
			limits:   sl,
		}
		limits[p.Name()] = sl.HardLimit
	}

	return &Gateway{
		projectID: projectID,
		sources:   sources,
		ledger:    NewQuotaLedger(limits),
		cache:     cache,
		audit:     audit,
		disabled:  make(map[string]error),
		now:       time.Now,
		sleep:     sleepContext,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}, nil
}

// Ledger exposes the run's quota ledger for reporting.
func (g *Gateway) Ledger() *QuotaLedger { return g.ledger }

// Stats returns a snapshot of the run-scoped call counters.
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// DisabledSources lists sources shut off for the rest of the run.
func (g *Gateway) DisabledSources() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.disabled))
	for s := range g.disabled {
		out = append(out, s)
	}
	return out
}

// Fetch performs one logical call against a source: cache lookup first,
// then a quota-checked, rate-limited provider call with bounded retry.
// Failures come back wrapped around the taxonomy sentinels so callers
// can distinguish skip-and-flag errors from source-fatal ones.
func (g *Gateway) Fetch(ctx context.Context, source, query string, params repository.ProviderParams) (*entity.ProviderResult, error) {
	rt, ok := g.sources[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	if cause := g.disabledCause(source); cause != nil {
		return nil, fmt.Errorf("source %s disabled: %w", source, cause)
	}

	fp := utils.Fingerprint(query, params.Geo, params.Language)
	cacheKey := source + ":" + fp

	if value, hit, err := g.cache.Get(ctx, cacheKey); err != nil {
		slog.Warn("Cache lookup failed, falling through to provider", "source", source, "error", err)
	} else if hit {
		var result entity.ProviderResult
		if err := json.Unmarshal(value, &result); err == nil {
			g.recordCacheHit(source)
			g.appendAudit(ctx, source, fp, entity.OutcomeCacheHit, "", 0, 0, 0)
			return &result, nil
		}
		slog.Warn("Cache entry undecodable, refetching", "source", source)
	}
	metrics.CacheLookupsTotal.WithLabelValues(source, "miss").Inc()

	for attempt := 0; ; attempt++ {
		if err := g.ledger.Reserve(source, 1); err != nil {
			g.disable(source, repository.ErrQuotaExceeded)
			g.appendAudit(ctx, source, fp, entity.OutcomeQuotaBlocked, repository.ErrorKind(err), attempt, 0, 0)
			return nil, err
		}
		metrics.QuotaConsumed.WithLabelValues(source).Set(float64(g.ledger.Consumed(source)))
		g.recordAPICall(source)

		if err := rt.bucket.Take(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, rt.limits.RequestTimeout)
		start := g.now()
		result, err := rt.provider.Fetch(callCtx, query, params)
		duration := g.now().Sub(start)
		cancel()
		metrics.ProviderCallDuration.WithLabelValues(source).Observe(duration.Seconds())

		if err == nil {
			if value, merr := json.Marshal(result); merr == nil {
				if cerr := g.cache.Set(ctx, cacheKey, value, rt.limits.CacheTTL); cerr != nil {
					slog.Warn("Cache write failed", "source", source, "error", cerr)
				}
			}
			g.appendAudit(ctx, source, fp, entity.OutcomeSuccess, "", attempt, duration, 1)
			return result, nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("source %s: %w", source, repository.ErrTimeout)
		}

		if errors.Is(err, repository.ErrAuth) {
			g.disable(source, repository.ErrAuth)
			g.appendAudit(ctx, source, fp, entity.OutcomeFailure, "auth", attempt, duration, 1)
			return nil, err
		}

		if !repository.Retryable(err) {
			g.appendAudit(ctx, source, fp, entity.OutcomeFailure, repository.ErrorKind(err), attempt, duration, 1)
			return nil, err
		}

		if attempt+1 >= g.maxAttempts(rt, err) {
			g.appendAudit(ctx, source, fp, entity.OutcomeFailure, repository.ErrorKind(err), attempt, duration, 1)
			return nil, fmt.Errorf("source %s: retries exhausted: %w", source, err)
		}

		g.recordRetry(source)
		g.appendAudit(ctx, source, fp, entity.OutcomeRetry, repository.ErrorKind(err), attempt, duration, 1)

		delay := rt.limits.BaseBackoff<<attempt + g.jitter(rt.limits.BaseBackoff)
		slog.Debug("Retrying provider call",
			"source", source, "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)
		if serr := g.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// maxAttempts returns the attempt ceiling for the error class: a
// timeout gets exactly one retry, everything retryable gets the
// configured maximum.
func (g *Gateway) maxAttempts(rt *sourceRuntime, err error) int {
	max := rt.limits.MaxRetries
	if max < 1 {
		max = 1
	}
	if errors.Is(err, repository.ErrTimeout) && max > timeoutAttempts {
		return timeoutAttempts
	}
	return max
}

func (g *Gateway) disable(source string, cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, already := g.disabled[source]; !already {
		g.disabled[source] = cause
		slog.Warn("Source disabled for the rest of the run", "source", source, "cause", cause)
	}
}

func (g *Gateway) disabledCause(source string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled[source]
}

func (g *Gateway) recordAPICall(source string) {
	g.mu.Lock()
	g.stats.APICalls++
	g.mu.Unlock()
}

func (g *Gateway) recordCacheHit(source string) {
	g.mu.Lock()
	g.stats.CacheHits++
	g.mu.Unlock()
	metrics.CacheLookupsTotal.WithLabelValues(source, "hit").Inc()
	metrics.ProviderCallsTotal.WithLabelValues(source, string(entity.OutcomeCacheHit)).Inc()
}

func (g *Gateway) recordRetry(source string) {
	g.mu.Lock()
	g.stats.Retries++
	g.mu.Unlock()
}

func (g *Gateway) appendAudit(ctx context.Context, source, fingerprint string,
	outcome entity.CallOutcome, errorKind string, attempt int, duration time.Duration, quotaDelta int) {

	if outcome != entity.OutcomeCacheHit {
		metrics.ProviderCallsTotal.WithLabelValues(source, string(outcome)).Inc()
	}
	record := &entity.AuditRecord{
		ProjectID:        g.projectID,
		Source:           source,
		QueryFingerprint: fingerprint,
		Outcome:          outcome,
		ErrorKind:        errorKind,
		Attempt:          attempt,
		Duration:         duration,
		QuotaDelta:       quotaDelta,
		CreatedAt:        g.now(),
	}
	if err := g.audit.Append(ctx, record); err != nil {
		slog.Warn("Audit append failed", "source", source, "outcome", outcome, "error", err)
	}
}
