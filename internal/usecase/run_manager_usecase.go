package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
	"github.com/user/keyword-service/pkg/utils"
)

// PipelineFactory builds a run-scoped Runner for a project. The
// indirection exists because each run owns its own gateway (and with it
// the run's quota ledger), so runners cannot be shared.
type PipelineFactory func(project *entity.Project) (Runner, error)

// RunStatus is the externally visible state of a project's pipeline.
type RunStatus struct {
	ProjectID string       `json:"project_id"`
	Running   bool         `json:"running"`
	Stage     entity.Stage `json:"stage"`
	SavedAt   time.Time    `json:"saved_at,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// RunManager owns the lifecycle of pipeline runs: one active run per
// project, background execution, and retrieval of finished results.
type RunManager struct {
	factory        PipelineFactory
	projectRepo    repository.ProjectRepository
	checkpointRepo repository.CheckpointRepository

	mu      sync.Mutex
	running map[string]context.CancelFunc
	results map[string]*entity.RunResult
	errs    map[string]error
}

// NewRunManager creates a RunManager.
func NewRunManager(factory PipelineFactory, projectRepo repository.ProjectRepository, checkpointRepo repository.CheckpointRepository) *RunManager {
	return &RunManager{
		factory:        factory,
		projectRepo:    projectRepo,
		checkpointRepo: checkpointRepo,
		running:        make(map[string]context.CancelFunc),
		results:        make(map[string]*entity.RunResult),
		errs:           make(map[string]error),
	}
}

// Submit registers the project and starts its pipeline in the
// background. A project with a run already in flight is rejected.
func (m *RunManager) Submit(ctx context.Context, project *entity.Project, opts RunOptions) (string, error) {
	if project.ID == "" {
		project.ID = utils.KeywordID("project", ulid.Make().String())
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	if _, active := m.running[project.ID]; active {
		m.mu.Unlock()
		return "", fmt.Errorf("project %s: %w", project.ID, repository.ErrRunInProgress)
	}

	if err := m.projectRepo.Save(ctx, project); err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("save project: %w", err)
	}

	runner, err := m.factory(project)
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("build pipeline: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.running[project.ID] = cancel
	delete(m.results, project.ID)
	delete(m.errs, project.ID)
	m.mu.Unlock()

	go func() {
		defer cancel()
		result, runErr := runner.Run(runCtx, project, opts)

		m.mu.Lock()
		delete(m.running, project.ID)
		if runErr != nil {
			m.errs[project.ID] = runErr
			slog.Error("Pipeline run failed", "project_id", project.ID, "error", runErr)
		} else {
			m.results[project.ID] = result
		}
		m.mu.Unlock()
	}()

	return project.ID, nil
}

// Status reports whether a run is active and the last checkpointed
// stage. A project with neither a run nor a checkpoint is not found.
func (m *RunManager) Status(ctx context.Context, projectID string) (*RunStatus, error) {
	m.mu.Lock()
	_, active := m.running[projectID]
	runErr := m.errs[projectID]
	m.mu.Unlock()

	status := &RunStatus{ProjectID: projectID, Running: active}
	if runErr != nil {
		status.Error = runErr.Error()
	}

	cp, err := m.checkpointRepo.Load(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		if !active && runErr == nil {
			return nil, fmt.Errorf("project %s: %w", projectID, repository.ErrNotFound)
		}
		status.Stage = entity.StageCreated
		return status, nil
	}
	status.Stage = cp.Stage
	status.SavedAt = cp.SavedAt
	return status, nil
}

// Cancel stops an active run. Cancelling a project with no active run
// is a no-op that reports not found.
func (m *RunManager) Cancel(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel, active := m.running[projectID]
	if !active {
		return fmt.Errorf("project %s has no active run: %w", projectID, repository.ErrNotFound)
	}
	cancel()
	return nil
}

// Result returns the finished result set for a project, or the run
// error if the run failed.
func (m *RunManager) Result(projectID string) (*entity.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[projectID]; ok {
		return nil, err
	}
	result, ok := m.results[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s has no finished run: %w", projectID, repository.ErrNotFound)
	}
	return result, nil
}
