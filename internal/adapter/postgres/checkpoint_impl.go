package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/keyword-service/internal/entity"
)

// CheckpointRepoImpl provides a concrete implementation for the
// CheckpointRepository interface using PostgreSQL.
type CheckpointRepoImpl struct {
	db *pgxpool.Pool
}

// NewCheckpointRepo creates a new instance of CheckpointRepoImpl.
func NewCheckpointRepo(db *pgxpool.Pool) *CheckpointRepoImpl {
	return &CheckpointRepoImpl{db: db}
}

// Save writes the checkpoint for a project, replacing any earlier one.
func (r *CheckpointRepoImpl) Save(ctx context.Context, checkpoint *entity.Checkpoint) error {
	query := `
		INSERT INTO checkpoints (project_id, stage, payload, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			payload = EXCLUDED.payload,
			saved_at = EXCLUDED.saved_at;
	`
	_, err := r.db.Exec(ctx, query,
		checkpoint.ProjectID, checkpoint.Stage, []byte(checkpoint.Payload), checkpoint.SavedAt)
	return err
}

// Load retrieves the checkpoint for a project, (nil, nil) when none
// exists.
func (r *CheckpointRepoImpl) Load(ctx context.Context, projectID string) (*entity.Checkpoint, error) {
	query := `SELECT project_id, stage, payload, saved_at FROM checkpoints WHERE project_id = $1;`
	row := r.db.QueryRow(ctx, query, projectID)

	var cp entity.Checkpoint
	var payload []byte
	err := row.Scan(&cp.ProjectID, &cp.Stage, &payload, &cp.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp.Payload = payload
	return &cp, nil
}

// Clear removes a project's checkpoint so the next run starts fresh.
func (r *CheckpointRepoImpl) Clear(ctx context.Context, projectID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM checkpoints WHERE project_id = $1;`, projectID)
	return err
}
