package entity

import "time"

// CallOutcome classifies one gateway call attempt in the audit trail.
type CallOutcome string

const (
	OutcomeCacheHit     CallOutcome = "cache_hit"
	OutcomeSuccess      CallOutcome = "success"
	OutcomeRetry        CallOutcome = "retry"
	OutcomeFailure      CallOutcome = "failure"
	OutcomeQuotaBlocked CallOutcome = "quota_blocked"
)

// AuditRecord is one immutable entry in the gateway's audit trail.
// Queries are recorded as fingerprints, never raw text.
type AuditRecord struct {
	ID               int64
	ProjectID        string
	Source           string
	QueryFingerprint string
	Outcome          CallOutcome
	ErrorKind        string // taxonomy name on retry/failure, empty otherwise
	Attempt          int
	Duration         time.Duration
	QuotaDelta       int
	CreatedAt        time.Time
}
