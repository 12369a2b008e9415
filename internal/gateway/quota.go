package gateway

import (
	"fmt"
	"sync"

	"github.com/user/keyword-service/internal/repository"
)

// QuotaLedger tracks per-source request and consumption counters
// against hard limits. Invariant: consumed never exceeds the hard
// limit for any source; Reserve fails instead of letting it.
// All methods are safe for concurrent workers.
type QuotaLedger struct {
	mu       sync.Mutex
	limits   map[string]int // <= 0 means unlimited
	requests map[string]int
	consumed map[string]int
}

// NewQuotaLedger creates a ledger with the given per-source hard limits.
func NewQuotaLedger(limits map[string]int) *QuotaLedger {
	l := &QuotaLedger{
		limits:   make(map[string]int, len(limits)),
		requests: make(map[string]int),
		consumed: make(map[string]int),
	}
	for source, limit := range limits {
		l.limits[source] = limit
	}
	return l
}

// Reserve records one attempted call of the given cost. It fails with
// ErrQuotaExceeded, consuming nothing, when the hard limit would be
// exceeded.
func (l *QuotaLedger) Reserve(source string, cost int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, bounded := l.limits[source]
	if bounded && limit > 0 && l.consumed[source]+cost > limit {
		return fmt.Errorf("source %s: consumed %d of %d: %w",
			source, l.consumed[source], limit, repository.ErrQuotaExceeded)
	}
	l.requests[source]++
	l.consumed[source] += cost
	return nil
}

// Consumed returns the quota units consumed for a source so far.
func (l *QuotaLedger) Consumed(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consumed[source]
}

// Requests returns the number of calls attempted for a source.
func (l *QuotaLedger) Requests(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[source]
}

// Remaining returns the quota left for a source. bounded is false for
// sources without a hard limit.
func (l *QuotaLedger) Remaining(source string) (remaining int, bounded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	limit, ok := l.limits[source]
	if !ok || limit <= 0 {
		return 0, false
	}
	r := limit - l.consumed[source]
	if r < 0 {
		r = 0
	}
	return r, true
}
