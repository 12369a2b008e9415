package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
)

// In-memory repository fakes mirroring the persistence contracts,
// shared by the pipeline and run-manager tests.

type fakeKeywordRepo struct {
	mu      sync.Mutex
	records map[string]*entity.KeywordRecord
	upserts int
}

func newFakeKeywordRepo() *fakeKeywordRepo {
	return &fakeKeywordRepo{records: make(map[string]*entity.KeywordRecord)}
}

func (r *fakeKeywordRepo) UpsertBatch(_ context.Context, records []*entity.KeywordRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	return nil
}

func (r *fakeKeywordRepo) FindByProject(_ context.Context, projectID string) ([]*entity.KeywordRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.KeywordRecord
	for _, rec := range r.records {
		if rec.ProjectID == projectID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Normalized != out[j].Normalized {
			return out[i].Normalized < out[j].Normalized
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*entity.SerpSnapshot // keyed projectID+"/"+keywordID
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]*entity.SerpSnapshot)}
}

func (r *fakeSnapshotRepo) Save(_ context.Context, snapshot *entity.SerpSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.ProjectID+"/"+snapshot.KeywordID] = snapshot
	return nil
}

func (r *fakeSnapshotRepo) FindByKeyword(_ context.Context, projectID, keywordID string) (*entity.SerpSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok := r.snapshots[projectID+"/"+keywordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return snapshot, nil
}

type fakeCheckpointRepo struct {
	mu          sync.Mutex
	checkpoints map[string]*entity.Checkpoint
	saves       []entity.Stage
}

func newFakeCheckpointRepo() *fakeCheckpointRepo {
	return &fakeCheckpointRepo{checkpoints: make(map[string]*entity.Checkpoint)}
}

func (r *fakeCheckpointRepo) Load(_ context.Context, projectID string) (*entity.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.checkpoints[projectID]
	if !ok {
		return nil, nil
	}
	return cp, nil
}

func (r *fakeCheckpointRepo) Save(_ context.Context, cp *entity.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints[cp.ProjectID] = cp
	r.saves = append(r.saves, cp.Stage)
	return nil
}

func (r *fakeCheckpointRepo) Clear(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkpoints, projectID)
	return nil
}

func (r *fakeCheckpointRepo) stage(projectID string) entity.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cp := r.checkpoints[projectID]; cp != nil {
		return cp.Stage
	}
	return ""
}

type fakeClusterRepo struct {
	mu    sync.Mutex
	nodes map[string]*entity.ClusterNode
	links map[string][]entity.SiblingLink
}

func newFakeClusterRepo() *fakeClusterRepo {
	return &fakeClusterRepo{
		nodes: make(map[string]*entity.ClusterNode),
		links: make(map[string][]entity.SiblingLink),
	}
}

func (r *fakeClusterRepo) UpsertBatch(_ context.Context, nodes []*entity.ClusterNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		r.nodes[node.ID] = node
	}
	return nil
}

func (r *fakeClusterRepo) SaveLinks(_ context.Context, projectID string, links []entity.SiblingLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[projectID] = links
	return nil
}

func (r *fakeClusterRepo) FindByProject(_ context.Context, projectID string) ([]*entity.ClusterNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ClusterNode
	for _, node := range r.nodes {
		if node.ProjectID == projectID {
			out = append(out, node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeClusterRepo) FindLinks(_ context.Context, projectID string) ([]entity.SiblingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[projectID], nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*entity.AuditRecord
}

func (r *fakeAuditRepo) Append(_ context.Context, record *entity.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*entity.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*entity.Project)}
}

func (r *fakeProjectRepo) Save(_ context.Context, project *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = project
	return nil
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id string) (*entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return project, nil
}

// fakeExpander returns a fixed candidate list and counts invocations.
type fakeExpander struct {
	mu         sync.Mutex
	candidates []repository.Candidate
	calls      int
}

func (e *fakeExpander) Expand(_ context.Context, _ *entity.Project) ([]repository.Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.candidates, nil
}

// fakeEmbedder hands out a distinct axis-aligned unit vector per lead
// token, so keywords sharing a first word cluster together and others
// stay orthogonal.
type fakeEmbedder struct {
	mu   sync.Mutex
	axes map[string]int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{axes: make(map[string]int)}
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	const dim = 16
	out := make([][]float64, len(texts))
	for i, text := range texts {
		lead := text
		for j := 0; j < len(text); j++ {
			if text[j] == ' ' {
				lead = text[:j]
				break
			}
		}
		axis, ok := e.axes[lead]
		if !ok {
			axis = len(e.axes) % dim
			e.axes[lead] = axis
		}
		v := make([]float64, dim)
		v[axis] = 1
		out[i] = v
	}
	return out, nil
}

// fakeBriefSink records published result sets.
type fakeBriefSink struct {
	mu      sync.Mutex
	results []*entity.RunResult
}

func (s *fakeBriefSink) Publish(_ context.Context, result *entity.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}
