package repository

import (
	"context"

	"github.com/user/keyword-service/internal/entity"
)

// KeywordRepository persists keyword records. Upserts are keyed on the
// record ID so re-applying a batch is idempotent.
type KeywordRepository interface {
	UpsertBatch(ctx context.Context, records []*entity.KeywordRecord) error
	FindByProject(ctx context.Context, projectID string) ([]*entity.KeywordRecord, error)
}

// SnapshotRepository persists SERP snapshots, one latest snapshot per
// keyword per project.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *entity.SerpSnapshot) error
	FindByKeyword(ctx context.Context, projectID, keywordID string) (*entity.SerpSnapshot, error)
}

// CheckpointRepository persists pipeline checkpoints. Load returns
// (nil, nil) when no checkpoint exists.
type CheckpointRepository interface {
	Load(ctx context.Context, projectID string) (*entity.Checkpoint, error)
	Save(ctx context.Context, checkpoint *entity.Checkpoint) error
	Clear(ctx context.Context, projectID string) error
}

// ClusterRepository persists cluster nodes and sibling links.
type ClusterRepository interface {
	UpsertBatch(ctx context.Context, nodes []*entity.ClusterNode) error
	SaveLinks(ctx context.Context, projectID string, links []entity.SiblingLink) error
	FindByProject(ctx context.Context, projectID string) ([]*entity.ClusterNode, error)
	FindLinks(ctx context.Context, projectID string) ([]entity.SiblingLink, error)
}

// AuditRepository appends immutable audit records for gateway calls.
type AuditRepository interface {
	Append(ctx context.Context, record *entity.AuditRecord) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Save(ctx context.Context, project *entity.Project) error
	FindByID(ctx context.Context, id string) (*entity.Project, error)
}
