package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

// blockingRunner runs until released, so tests can observe the active
// state deterministically.
type blockingRunner struct {
	release chan struct{}
	result  *entity.RunResult
	err     error
}

func (r *blockingRunner) Run(ctx context.Context, project *entity.Project, _ RunOptions) (*entity.RunResult, error) {
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &entity.RunResult{ProjectID: project.ID, CompletedAt: time.Now().UTC()}, nil
}

func newManager(runner Runner) (*RunManager, *fakeCheckpointRepo) {
	checkpoints := newFakeCheckpointRepo()
	factory := func(*entity.Project) (Runner, error) { return runner, nil }
	return NewRunManager(factory, newFakeProjectRepo(), checkpoints), checkpoints
}

func waitForFinish(t *testing.T, manager *RunManager, projectID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		manager.mu.Lock()
		_, active := manager.running[projectID]
		manager.mu.Unlock()
		return !active
	}, time.Second, 5*time.Millisecond)
}

func TestRunManagerSubmitAndResult(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	manager, _ := newManager(runner)
	ctx := context.Background()

	projectID, err := manager.Submit(ctx, &entity.Project{Name: "p", Seeds: []string{"seed"}}, RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, projectID)

	status, err := manager.Status(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, entity.StageCreated, status.Stage)

	// No result while the run is in flight.
	_, err = manager.Result(projectID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	close(runner.release)
	require.Eventually(t, func() bool {
		_, err := manager.Result(projectID)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	result, err := manager.Result(projectID)
	require.NoError(t, err)
	assert.Equal(t, projectID, result.ProjectID)

	// The pipeline persists its own checkpoints; emulate the final one
	// to check the post-run status view.
	checkpoints, _ := manager.checkpointRepo.(*fakeCheckpointRepo)
	require.NoError(t, checkpoints.Save(ctx, &entity.Checkpoint{
		ProjectID: projectID, Stage: entity.StageCompleted, SavedAt: time.Now().UTC(),
	}))
	status, err = manager.Status(ctx, projectID)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, entity.StageCompleted, status.Stage)
}

func TestRunManagerRejectsConcurrentRuns(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	manager, _ := newManager(runner)
	ctx := context.Background()

	project := &entity.Project{ID: "proj-1", Seeds: []string{"seed"}}
	_, err := manager.Submit(ctx, project, RunOptions{})
	require.NoError(t, err)

	_, err = manager.Submit(ctx, project, RunOptions{})
	assert.ErrorIs(t, err, repository.ErrRunInProgress)

	close(runner.release)
}

func TestRunManagerCancel(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	manager, _ := newManager(runner)
	ctx := context.Background()

	projectID, err := manager.Submit(ctx, &entity.Project{ID: "proj-1", Seeds: []string{"seed"}}, RunOptions{})
	require.NoError(t, err)

	require.NoError(t, manager.Cancel(projectID))
	waitForFinish(t, manager, projectID)

	_, err = manager.Result(projectID)
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, manager.Cancel(projectID), repository.ErrNotFound)
}

func TestRunManagerSurfacesRunError(t *testing.T) {
	runErr := errors.New("stage scoring: boom")
	runner := &blockingRunner{release: make(chan struct{}), err: runErr}
	manager, _ := newManager(runner)
	ctx := context.Background()

	projectID, err := manager.Submit(ctx, &entity.Project{ID: "proj-1", Seeds: []string{"seed"}}, RunOptions{})
	require.NoError(t, err)
	close(runner.release)

	require.Eventually(t, func() bool {
		_, err := manager.Result(projectID)
		return err != nil && !errors.Is(err, repository.ErrNotFound)
	}, time.Second, 5*time.Millisecond)

	status, err := manager.Status(ctx, projectID)
	require.NoError(t, err)
	assert.Contains(t, status.Error, "boom")
}

func TestRunManagerUnknownProject(t *testing.T) {
	manager, _ := newManager(&blockingRunner{release: make(chan struct{})})

	_, err := manager.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = manager.Result("nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
