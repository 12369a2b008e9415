package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

// SnapshotRepoImpl provides a concrete implementation for the
// SnapshotRepository interface using PostgreSQL.
type SnapshotRepoImpl struct {
	db *pgxpool.Pool
}

// NewSnapshotRepo creates a new instance of SnapshotRepoImpl.
func NewSnapshotRepo(db *pgxpool.Pool) *SnapshotRepoImpl {
	return &SnapshotRepoImpl{db: db}
}

// Save stores the latest SERP snapshot for a keyword, replacing any
// earlier capture from the same run.
func (r *SnapshotRepoImpl) Save(ctx context.Context, snapshot *entity.SerpSnapshot) error {
	resultsJSON, err := json.Marshal(snapshot.Results)
	if err != nil {
		return err
	}
	featuresJSON, err := json.Marshal(snapshot.Features)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO serp_snapshots (project_id, keyword_id, query, geo, language,
			results, features, ads_count, paa_count, provider, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (project_id, keyword_id) DO UPDATE SET
			results = EXCLUDED.results,
			features = EXCLUDED.features,
			ads_count = EXCLUDED.ads_count,
			paa_count = EXCLUDED.paa_count,
			provider = EXCLUDED.provider,
			captured_at = EXCLUDED.captured_at;
	`
	_, err = r.db.Exec(ctx, query,
		snapshot.ProjectID, snapshot.KeywordID, snapshot.Query, snapshot.Geo, snapshot.Language,
		resultsJSON, featuresJSON, snapshot.AdsCount, snapshot.PAACount,
		snapshot.Provider, snapshot.CapturedAt,
	)
	return err
}

// FindByKeyword retrieves the latest snapshot for a keyword.
func (r *SnapshotRepoImpl) FindByKeyword(ctx context.Context, projectID, keywordID string) (*entity.SerpSnapshot, error) {
	query := `
		SELECT project_id, keyword_id, query, geo, language,
		       results, features, ads_count, paa_count, provider, captured_at
		FROM serp_snapshots
		WHERE project_id = $1 AND keyword_id = $2;
	`
	row := r.db.QueryRow(ctx, query, projectID, keywordID)

	var snap entity.SerpSnapshot
	var resultsJSON, featuresJSON []byte
	err := row.Scan(
		&snap.ProjectID, &snap.KeywordID, &snap.Query, &snap.Geo, &snap.Language,
		&resultsJSON, &featuresJSON, &snap.AdsCount, &snap.PAACount,
		&snap.Provider, &snap.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resultsJSON, &snap.Results); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(featuresJSON, &snap.Features); err != nil {
		return nil, err
	}
	return &snap, nil
}
