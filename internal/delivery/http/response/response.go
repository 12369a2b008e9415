package response

import (
	"time"

	"github.com/user/keyword-service/internal/entity"
)

type SubmitProjectResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

// ProjectStatusResponse is a DTO for run status, mirroring usecase.RunStatus
type ProjectStatusResponse struct {
	ProjectID string     `json:"project_id"`
	Running   bool       `json:"running"`
	Stage     string     `json:"stage"`
	SavedAt   *time.Time `json:"saved_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type RunResultResponse struct {
	ProjectID   string                  `json:"project_id"`
	RunID       string                  `json:"run_id"`
	Keywords    []*entity.KeywordRecord `json:"keywords"`
	Topics      []*entity.ClusterNode   `json:"topics"`
	Pages       []*entity.ClusterNode   `json:"pages"`
	Links       []entity.SiblingLink    `json:"sibling_links"`
	Reports     []entity.StageReport    `json:"stage_reports"`
	CompletedAt time.Time               `json:"completed_at"`
}
