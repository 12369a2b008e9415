package repository

import (
	"context"

	"github.com/user/keyword-service/internal/entity"
)

// Candidate is one expansion output: a keyword text plus its source tag.
type Candidate struct {
	Text   string
	Source entity.KeywordSource
}

// Expander is the expansion collaborator, consumed once per run at the
// start of the expansion stage.
type Expander interface {
	Expand(ctx context.Context, project *entity.Project) ([]Candidate, error)
}

// Embedder supplies semantic embedding vectors for keyword texts. The
// pipeline treats vectors as opaque; it never generates them itself.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// BriefSink consumes the final immutable result set at the briefs
// stage boundary.
type BriefSink interface {
	Publish(ctx context.Context, result *entity.RunResult) error
}
