package repository

import "errors"

// Error taxonomy for external source calls. Providers map their wire
// failures onto these sentinels; the gateway and orchestrator match
// them with errors.Is to decide between retry, skip and disable.
var (
	// ErrAuth means invalid credentials or permissions. Fatal for the
	// source for the rest of the run; never retried.
	ErrAuth = errors.New("authentication failed")

	// ErrClient means a malformed or unsupported request. The affected
	// keyword is skipped and flagged; never retried.
	ErrClient = errors.New("client error")

	// ErrRateLimited means the source rejected the call for pacing
	// reasons. Retried with exponential backoff up to the configured
	// ceiling, then treated like ErrClient for that keyword.
	ErrRateLimited = errors.New("rate limited by source")

	// ErrServer means a transient server-side failure. Retried with
	// backoff, then skip and flag.
	ErrServer = errors.New("server error")

	// ErrTimeout means the call exceeded its deadline. Eligible for a
	// single retry, distinct from rate-limit backoff.
	ErrTimeout = errors.New("request timed out")

	// ErrQuotaExceeded means the source's hard quota limit would be
	// exceeded. Fatal for the source for the remainder of the run.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrSourceDisabled means a previous auth or quota failure already
	// disabled the source for this run.
	ErrSourceDisabled = errors.New("source disabled for this run")
)

// Pipeline-level errors.
var (
	// ErrCheckpointCorrupt means a stored resume payload failed
	// validation. Fatal for the run; the caller must restart without
	// resume.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")

	// ErrRunInProgress means a pipeline run is already active for the
	// project.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// Retryable reports whether an error is eligible for another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) || errors.Is(err, ErrTimeout)
}

// ErrorKind names the taxonomy bucket of err for audit records and
// keyword flags.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrClient):
		return "client"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrSourceDisabled):
		return "source_disabled"
	case err != nil:
		return "unknown"
	default:
		return ""
	}
}
