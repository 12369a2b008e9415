package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/user/keyword-service/internal/clustering"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/gateway"
	"github.com/user/keyword-service/internal/repository"
	"github.com/user/keyword-service/pkg/config"
	"github.com/user/keyword-service/pkg/metrics"
)

// Runner drives a project's keyword research pipeline end to end.
type Runner interface {
	Run(ctx context.Context, project *entity.Project, opts RunOptions) (*entity.RunResult, error)
}

// RunOptions control how a pipeline run starts.
type RunOptions struct {
	// Resume continues from the project's stored checkpoint instead of
	// starting over.
	Resume bool
	// Force clears an existing checkpoint and re-runs everything.
	Force bool
}

type pipelineUseCase struct {
	gateway        *gateway.Gateway
	expander       repository.Expander
	embedder       repository.Embedder
	keywordRepo    repository.KeywordRepository
	snapshotRepo   repository.SnapshotRepository
	checkpointRepo repository.CheckpointRepository
	clusterRepo    repository.ClusterRepository
	briefs         repository.BriefSink
	clusterer      *clustering.Clusterer
	scoringCfg     *config.ScoringConfig
	concurrency    int
}

// NewPipeline creates the pipeline use case for one project run. The
// gateway instance is expected to be run-scoped (it owns the run's
// quota ledger); everything else may be shared.
func NewPipeline(
	gw *gateway.Gateway,
	expander repository.Expander,
	embedder repository.Embedder,
	keywordRepo repository.KeywordRepository,
	snapshotRepo repository.SnapshotRepository,
	checkpointRepo repository.CheckpointRepository,
	clusterRepo repository.ClusterRepository,
	briefs repository.BriefSink,
	clusterer *clustering.Clusterer,
	scoringCfg *config.ScoringConfig,
	concurrency int,
) Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &pipelineUseCase{
		gateway:        gw,
		expander:       expander,
		embedder:       embedder,
		keywordRepo:    keywordRepo,
		snapshotRepo:   snapshotRepo,
		checkpointRepo: checkpointRepo,
		clusterRepo:    clusterRepo,
		briefs:         briefs,
		clusterer:      clusterer,
		scoringCfg:     scoringCfg,
		concurrency:    concurrency,
	}
}

// runState is the in-memory view of one run, rebuilt from persistence
// when resuming.
type runState struct {
	project *entity.Project
	runID   string
	records []*entity.KeywordRecord
	topics  []*entity.ClusterNode
	pages   []*entity.ClusterNode
	links   []entity.SiblingLink
	reports []entity.StageReport
	result  *entity.RunResult
}

// Run executes the stage machine for a project. Stages execute in
// their fixed order; a checkpoint is written strictly after each stage
// fully completes, never concurrently with in-flight stage work. A
// per-keyword or per-source failure degrades the affected stage but
// does not abort the run; only checkpoint corruption and context
// cancellation do.
func (p *pipelineUseCase) Run(ctx context.Context, project *entity.Project, opts RunOptions) (*entity.RunResult, error) {
	state := &runState{project: project, runID: ulid.Make().String()}

	stage, err := p.startingStage(ctx, project, opts, state)
	if err != nil {
		return nil, err
	}
	slog.Info("Pipeline starting", "project_id", project.ID, "run_id", state.runID, "stage", stage)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stage == entity.StageCompleted {
			if err := p.saveCheckpoint(ctx, project.ID, entity.StageCompleted, nil); err != nil {
				return nil, err
			}
			if state.result != nil {
				state.result.Reports = state.reports
			}
			slog.Info("Pipeline complete", "project_id", project.ID, "run_id", state.runID)
			return state.result, nil
		}

		start := time.Now()
		report, payload, err := p.runStage(ctx, stage, state)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		report.Stage = stage
		report.Duration = time.Since(start)
		state.reports = append(state.reports, *report)
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(report.Duration.Seconds())

		if err := p.saveCheckpoint(ctx, project.ID, stage, payload); err != nil {
			return nil, err
		}
		slog.Info("Stage complete",
			"project_id", project.ID, "stage", stage,
			"processed", report.Processed, "skipped", report.Skipped, "flagged", report.Flagged,
			"duration_ms", report.Duration.Milliseconds())

		next, ok := stage.Next()
		if !ok {
			return state.result, nil
		}
		stage = next
	}
}

// startingStage resolves where the run begins: fresh runs checkpoint
// "created" and start at expansion; resumed runs validate the stored
// checkpoint and start strictly after it, reloading persisted state.
func (p *pipelineUseCase) startingStage(ctx context.Context, project *entity.Project, opts RunOptions, state *runState) (entity.Stage, error) {
	if opts.Force {
		if err := p.checkpointRepo.Clear(ctx, project.ID); err != nil {
			return "", fmt.Errorf("clear checkpoint: %w", err)
		}
	}

	var cp *entity.Checkpoint
	if opts.Resume && !opts.Force {
		var err error
		cp, err = p.checkpointRepo.Load(ctx, project.ID)
		if err != nil {
			return "", fmt.Errorf("load checkpoint: %w", err)
		}
	}

	if cp == nil {
		if err := p.saveCheckpoint(ctx, project.ID, entity.StageCreated, nil); err != nil {
			return "", err
		}
		return entity.StageExpansion, nil
	}

	if !cp.Stage.Valid() {
		return "", fmt.Errorf("stored stage %q is not a pipeline stage: %w",
			cp.Stage, repository.ErrCheckpointCorrupt)
	}
	if err := validatePayload(cp); err != nil {
		return "", err
	}
	if cp.Stage == entity.StageCompleted {
		return "", fmt.Errorf("project %s already completed; restart without resume", project.ID)
	}

	// Completed stages are never re-executed on resume; rebuild their
	// output from persistence instead.
	if cp.Stage.Index() >= entity.StageExpansion.Index() {
		records, err := p.keywordRepo.FindByProject(ctx, project.ID)
		if err != nil {
			return "", fmt.Errorf("reload keywords: %w", err)
		}
		state.records = records
	}

	next, _ := cp.Stage.Next()
	slog.Info("Resuming from checkpoint",
		"project_id", project.ID, "checkpoint", cp.Stage, "next", next,
		"keywords", len(state.records))
	return next, nil
}

// validatePayload checks that a checkpoint's stage-specific payload
// decodes; an undecodable payload means the stored state cannot be
// trusted and the run must be restarted cleanly.
func validatePayload(cp *entity.Checkpoint) error {
	if len(cp.Payload) == 0 {
		return nil
	}
	switch cp.Stage {
	case entity.StageMetrics:
		var resume entity.MetricsResume
		if err := json.Unmarshal(cp.Payload, &resume); err != nil {
			return fmt.Errorf("metrics resume payload: %w", repository.ErrCheckpointCorrupt)
		}
	default:
		if !json.Valid(cp.Payload) {
			return fmt.Errorf("stage %s payload: %w", cp.Stage, repository.ErrCheckpointCorrupt)
		}
	}
	return nil
}

func (p *pipelineUseCase) runStage(ctx context.Context, stage entity.Stage, state *runState) (*entity.StageReport, json.RawMessage, error) {
	switch stage {
	case entity.StageExpansion:
		return p.runExpansion(ctx, state)
	case entity.StageMetrics:
		return p.runMetrics(ctx, state)
	case entity.StageProcessing:
		return p.runProcessing(ctx, state)
	case entity.StageScoring:
		return p.runScoring(ctx, state)
	case entity.StageClustering:
		return p.runClustering(ctx, state)
	case entity.StageBriefs:
		return p.runBriefs(ctx, state)
	default:
		return nil, nil, fmt.Errorf("stage %q has no executor", stage)
	}
}

func (p *pipelineUseCase) saveCheckpoint(ctx context.Context, projectID string, stage entity.Stage, payload json.RawMessage) error {
	cp := &entity.Checkpoint{
		ProjectID: projectID,
		Stage:     stage,
		Payload:   payload,
		SavedAt:   time.Now().UTC(),
	}
	if err := p.checkpointRepo.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", stage, err)
	}
	return nil
}

// runMetrics enriches every pending keyword through the access
// gateway with a bounded worker pool. Enrichment order across workers
// is not guaranteed; the record set is keyed by keyword ID so
// downstream stages are order-independent. Already-enriched records
// are skipped, which is what makes re-entering this stage after a
// partial failure a continuation instead of duplicate work.
func (p *pipelineUseCase) runMetrics(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}
	statsBefore := p.gateway.Stats()

	var pending []*entity.KeywordRecord
	for _, rec := range state.records {
		if rec.Enriched || rec.Flagged {
			report.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, rec := range pending {
		// Cancellation stops new work between tasks; in-flight calls
		// finish so partial results stay consistent for a resume.
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *entity.KeywordRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			err := p.enrichRecord(ctx, state, rec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rec.Flagged = true
				rec.FlagReason = repository.ErrorKind(err)
				report.Flagged++
				report.FlaggedKeywords = append(report.FlaggedKeywords, rec.Text)
				metrics.KeywordsProcessed.WithLabelValues(string(entity.StageMetrics), "flagged").Inc()
				return
			}
			report.Processed++
			metrics.KeywordsProcessed.WithLabelValues(string(entity.StageMetrics), "enriched").Inc()
		}(rec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// No checkpoint for an interrupted stage; resume re-enters it.
		return nil, nil, err
	}

	// Flagged records are durably written too, so a resumed run sees
	// the flags instead of silently retrying poisoned keywords.
	if err := p.keywordRepo.UpsertBatch(ctx, state.records); err != nil {
		return nil, nil, fmt.Errorf("persist enriched records: %w", err)
	}

	statsAfter := p.gateway.Stats()
	report.APICalls = statsAfter.APICalls - statsBefore.APICalls
	report.CacheHits = statsAfter.CacheHits - statsBefore.CacheHits
	report.Retries = statsAfter.Retries - statsBefore.Retries
	report.DisabledSources = p.gateway.DisabledSources()

	payload, err := json.Marshal(entity.MetricsResume{PendingKeywordIDs: flaggedIDs(state.records)})
	if err != nil {
		return nil, nil, err
	}
	return report, payload, nil
}

// enrichRecord performs the per-keyword SERP and trends fetches. A
// SERP failure fails the record; a trends failure only costs the trend
// series — the record still counts as enriched.
func (p *pipelineUseCase) enrichRecord(ctx context.Context, state *runState, rec *entity.KeywordRecord) error {
	params := repository.ProviderParams{
		Geo:      state.project.Geo,
		Language: state.project.Language,
	}

	serpResult, err := p.gateway.Fetch(ctx, "serp", rec.Text, params)
	if err != nil {
		return err
	}
	if snap := serpResult.Snapshot; snap != nil {
		snap.ProjectID = state.project.ID
		snap.KeywordID = rec.ID
		if err := p.snapshotRepo.Save(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		rec.SerpFeatures = snap.Features
		rec.AdsDensity = snap.AdsDensity()
	}
	if serpResult.Volume > 0 {
		rec.Volume = serpResult.Volume
	}
	if serpResult.CPC > 0 {
		rec.CPC = serpResult.CPC
	}

	trendResult, err := p.gateway.Fetch(ctx, "trends", rec.Text, params)
	if err != nil {
		slog.Debug("Trend enrichment degraded", "keyword_id", rec.ID, "error", err)
	} else {
		rec.TrendSeries = trendResult.TrendSeries
	}

	rec.Enriched = true
	return nil
}

func flaggedIDs(records []*entity.KeywordRecord) []string {
	var out []string
	for _, rec := range records {
		if rec.Flagged {
			out = append(out, rec.ID)
		}
	}
	return out
}
