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

// ProjectRepoImpl provides a concrete implementation for the
// ProjectRepository interface using PostgreSQL.
type ProjectRepoImpl struct {
	db *pgxpool.Pool
}

// NewProjectRepo creates a new instance of ProjectRepoImpl.
func NewProjectRepo(db *pgxpool.Pool) *ProjectRepoImpl {
	return &ProjectRepoImpl{db: db}
}

// Save stores or updates a project.
func (r *ProjectRepoImpl) Save(ctx context.Context, project *entity.Project) error {
	seedsJSON, err := json.Marshal(project.Seeds)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, name, seeds, geo, language, content_focus, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			seeds = EXCLUDED.seeds,
			geo = EXCLUDED.geo,
			language = EXCLUDED.language,
			content_focus = EXCLUDED.content_focus;
	`
	_, err = r.db.Exec(ctx, query,
		project.ID, project.Name, seedsJSON, project.Geo,
		project.Language, project.ContentFocus, project.CreatedAt,
	)
	return err
}

// FindByID retrieves a project by its identifier.
func (r *ProjectRepoImpl) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	query := `SELECT id, name, seeds, geo, language, content_focus, created_at FROM projects WHERE id = $1;`
	row := r.db.QueryRow(ctx, query, id)

	var project entity.Project
	var seedsJSON []byte
	err := row.Scan(&project.ID, &project.Name, &seedsJSON,
		&project.Geo, &project.Language, &project.ContentFocus, &project.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(seedsJSON, &project.Seeds); err != nil {
		return nil, err
	}
	return &project, nil
}
