package repository

import (
	"context"

	"github.com/user/keyword-service/internal/entity"
)

// ProviderParams carries the localization parameters of one fetch.
type ProviderParams struct {
	Geo      string
	Language string
}

// MetricsProvider is the capability interface implemented once per
// external data source. Implementations map their wire failures onto
// the error taxonomy sentinels; the gateway handles rate limiting,
// caching, quota and retries around this single method.
type MetricsProvider interface {
	// Name returns the source tag used for rate limits, quota and
	// cache namespacing.
	Name() string
	// Fetch performs one call against the source.
	Fetch(ctx context.Context, query string, params ProviderParams) (*entity.ProviderResult, error)
}
