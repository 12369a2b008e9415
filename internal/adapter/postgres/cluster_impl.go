package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/keyword-service/internal/entity"
)

// ClusterRepoImpl provides a concrete implementation for the
// ClusterRepository interface using PostgreSQL.
type ClusterRepoImpl struct {
	db *pgxpool.Pool
}

// NewClusterRepo creates a new instance of ClusterRepoImpl.
func NewClusterRepo(db *pgxpool.Pool) *ClusterRepoImpl {
	return &ClusterRepoImpl{db: db}
}

// UpsertBatch stores or updates cluster nodes.
func (r *ClusterRepoImpl) UpsertBatch(ctx context.Context, nodes []*entity.ClusterNode) error {
	query := `
		INSERT INTO clusters (id, project_id, level, label, hub_keyword_id,
			keyword_ids, page_node_ids, total_volume, opportunity_sum, avg_difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			hub_keyword_id = EXCLUDED.hub_keyword_id,
			keyword_ids = EXCLUDED.keyword_ids,
			page_node_ids = EXCLUDED.page_node_ids,
			total_volume = EXCLUDED.total_volume,
			opportunity_sum = EXCLUDED.opportunity_sum,
			avg_difficulty = EXCLUDED.avg_difficulty;
	`
	for _, node := range nodes {
		keywordIDsJSON, err := json.Marshal(node.KeywordIDs)
		if err != nil {
			return err
		}
		pageNodeIDsJSON, err := json.Marshal(node.PageNodeIDs)
		if err != nil {
			return err
		}
		if _, err := r.db.Exec(ctx, query,
			node.ID, node.ProjectID, node.Level, node.Label, node.HubKeywordID,
			keywordIDsJSON, pageNodeIDsJSON, node.TotalVolume, node.OpportunitySum, node.AvgDifficulty,
		); err != nil {
			return fmt.Errorf("upsert cluster %s: %w", node.ID, err)
		}
	}
	return nil
}

// SaveLinks replaces the sibling link graph for a project.
func (r *ClusterRepoImpl) SaveLinks(ctx context.Context, projectID string, links []entity.SiblingLink) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sibling_links WHERE project_id = $1;`, projectID); err != nil {
		return err
	}

	query := `
		INSERT INTO sibling_links (project_id, node_a, node_b, similarity)
		VALUES ($1, $2, $3, $4);
	`
	for _, link := range links {
		if _, err := r.db.Exec(ctx, query, projectID, link.A, link.B, link.Similarity); err != nil {
			return err
		}
	}
	return nil
}

// FindByProject returns all cluster nodes of a project, topics and
// pages alike, ordered by id for stable output.
func (r *ClusterRepoImpl) FindByProject(ctx context.Context, projectID string) ([]*entity.ClusterNode, error) {
	query := `
		SELECT id, project_id, level, label, hub_keyword_id,
			keyword_ids, page_node_ids, total_volume, opportunity_sum, avg_difficulty
		FROM clusters
		WHERE project_id = $1
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var nodes []*entity.ClusterNode
	for rows.Next() {
		var node entity.ClusterNode
		var keywordIDsJSON, pageNodeIDsJSON []byte
		if err := rows.Scan(
			&node.ID, &node.ProjectID, &node.Level, &node.Label, &node.HubKeywordID,
			&keywordIDsJSON, &pageNodeIDsJSON, &node.TotalVolume, &node.OpportunitySum, &node.AvgDifficulty,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(keywordIDsJSON, &node.KeywordIDs); err != nil {
			return nil, fmt.Errorf("decode keyword ids for %s: %w", node.ID, err)
		}
		if len(pageNodeIDsJSON) > 0 {
			if err := json.Unmarshal(pageNodeIDsJSON, &node.PageNodeIDs); err != nil {
				return nil, fmt.Errorf("decode page node ids for %s: %w", node.ID, err)
			}
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}

// FindLinks returns the sibling link graph of a project.
func (r *ClusterRepoImpl) FindLinks(ctx context.Context, projectID string) ([]entity.SiblingLink, error) {
	query := `
		SELECT node_a, node_b, similarity
		FROM sibling_links
		WHERE project_id = $1
		ORDER BY node_a, node_b;
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query sibling links: %w", err)
	}
	defer rows.Close()

	var links []entity.SiblingLink
	for rows.Next() {
		var link entity.SiblingLink
		if err := rows.Scan(&link.A, &link.B, &link.Similarity); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
