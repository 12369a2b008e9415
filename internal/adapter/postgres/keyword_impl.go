package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/keyword-service/internal/entity"
)

// KeywordRepoImpl provides a concrete implementation for the
// KeywordRepository interface using PostgreSQL.
type KeywordRepoImpl struct {
	db *pgxpool.Pool
}

// NewKeywordRepo creates a new instance of KeywordRepoImpl.
func NewKeywordRepo(db *pgxpool.Pool) *KeywordRepoImpl {
	return &KeywordRepoImpl{db: db}
}

// UpsertBatch stores or updates keyword records. The conflict target is
// the record ID, so re-applying a batch after a partial stage failure
// is a no-op for rows already written.
func (r *KeywordRepoImpl) UpsertBatch(ctx context.Context, records []*entity.KeywordRecord) error {
	query := `
		INSERT INTO keywords (
			id, project_id, text, normalized, source,
			volume, cpc, trend_series, trend_delta, trend_direction,
			serp_features, ads_density, enriched, intent, embedding,
			difficulty, traffic_potential, opportunity,
			flagged, flag_reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			volume = EXCLUDED.volume,
			cpc = EXCLUDED.cpc,
			trend_series = EXCLUDED.trend_series,
			trend_delta = EXCLUDED.trend_delta,
			trend_direction = EXCLUDED.trend_direction,
			serp_features = EXCLUDED.serp_features,
			ads_density = EXCLUDED.ads_density,
			enriched = EXCLUDED.enriched,
			intent = EXCLUDED.intent,
			embedding = EXCLUDED.embedding,
			difficulty = EXCLUDED.difficulty,
			traffic_potential = EXCLUDED.traffic_potential,
			opportunity = EXCLUDED.opportunity,
			flagged = EXCLUDED.flagged,
			flag_reason = EXCLUDED.flag_reason;
	`

	for _, kw := range records {
		trendJSON, err := json.Marshal(kw.TrendSeries)
		if err != nil {
			return err
		}
		featuresJSON, err := json.Marshal(kw.SerpFeatures)
		if err != nil {
			return err
		}
		embeddingJSON, err := json.Marshal(kw.Embedding)
		if err != nil {
			return err
		}
		difficultyJSON, err := json.Marshal(kw.Difficulty)
		if err != nil {
			return err
		}

		if _, err := r.db.Exec(ctx, query,
			kw.ID, kw.ProjectID, kw.Text, kw.Normalized, kw.Source,
			kw.Volume, kw.CPC, trendJSON, kw.TrendDelta, kw.TrendDirection,
			featuresJSON, kw.AdsDensity, kw.Enriched, kw.Intent, embeddingJSON,
			difficultyJSON, kw.TrafficPotential, kw.Opportunity,
			kw.Flagged, kw.FlagReason, kw.CreatedAt,
		); err != nil {
			return fmt.Errorf("upsert keyword %s: %w", kw.ID, err)
		}
	}
	return nil
}

// FindByProject retrieves all keyword records for a project.
func (r *KeywordRepoImpl) FindByProject(ctx context.Context, projectID string) ([]*entity.KeywordRecord, error) {
	query := `
		SELECT id, project_id, text, normalized, source,
		       volume, cpc, trend_series, trend_delta, trend_direction,
		       serp_features, ads_density, enriched, intent, embedding,
		       difficulty, traffic_potential, opportunity,
		       flagged, flag_reason, created_at
		FROM keywords
		WHERE project_id = $1
		ORDER BY normalized, id;
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.KeywordRecord
	for rows.Next() {
		var kw entity.KeywordRecord
		var trendJSON, featuresJSON, embeddingJSON, difficultyJSON []byte

		if err := rows.Scan(
			&kw.ID, &kw.ProjectID, &kw.Text, &kw.Normalized, &kw.Source,
			&kw.Volume, &kw.CPC, &trendJSON, &kw.TrendDelta, &kw.TrendDirection,
			&featuresJSON, &kw.AdsDensity, &kw.Enriched, &kw.Intent, &embeddingJSON,
			&difficultyJSON, &kw.TrafficPotential, &kw.Opportunity,
			&kw.Flagged, &kw.FlagReason, &kw.CreatedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(trendJSON, &kw.TrendSeries); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(featuresJSON, &kw.SerpFeatures); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(embeddingJSON, &kw.Embedding); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(difficultyJSON, &kw.Difficulty); err != nil {
			return nil, err
		}
		records = append(records, &kw)
	}
	return records, rows.Err()
}
