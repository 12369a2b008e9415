package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/keyword-service/internal/entity"
)

// AuditRepoImpl provides a concrete implementation for the
// AuditRepository interface using PostgreSQL. Records are append-only;
// nothing in the service updates or deletes them.
type AuditRepoImpl struct {
	db *pgxpool.Pool
}

// NewAuditRepo creates a new instance of AuditRepoImpl.
func NewAuditRepo(db *pgxpool.Pool) *AuditRepoImpl {
	return &AuditRepoImpl{db: db}
}

// Append writes one audit record.
func (r *AuditRepoImpl) Append(ctx context.Context, record *entity.AuditRecord) error {
	query := `
		INSERT INTO audit_log (project_id, source, query_fingerprint, outcome,
			error_kind, attempt, duration_ms, quota_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db.Exec(ctx, query,
		record.ProjectID, record.Source, record.QueryFingerprint, record.Outcome,
		record.ErrorKind, record.Attempt, record.Duration.Milliseconds(),
		record.QuotaDelta, record.CreatedAt,
	)
	return err
}
