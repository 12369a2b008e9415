package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/repository"
	"github.com/user/keyword-service/internal/scoring"
	"github.com/user/keyword-service/pkg/metrics"
	"github.com/user/keyword-service/pkg/utils"
)

// runExpansion asks the expansion collaborator for the candidate set
// and merges it into the record set. Merging is keyed by record ID, so
// re-running expansion on resume cannot duplicate keywords or clobber
// records a later stage already enriched.
func (p *pipelineUseCase) runExpansion(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}
	statsBefore := p.gateway.Stats()

	candidates, err := p.expander.Expand(ctx, state.project)
	if err != nil {
		return nil, nil, fmt.Errorf("expand seeds: %w", err)
	}

	existing := make(map[string]bool, len(state.records))
	for _, rec := range state.records {
		existing[rec.ID] = true
	}

	now := time.Now().UTC()
	for _, c := range candidates {
		normalized := utils.Normalize(c.Text)
		if normalized == "" {
			report.Skipped++
			continue
		}
		id := utils.KeywordID(string(c.Source), normalized)
		if existing[id] {
			report.Skipped++
			continue
		}
		existing[id] = true
		state.records = append(state.records, &entity.KeywordRecord{
			ID:         id,
			ProjectID:  state.project.ID,
			Text:       c.Text,
			Normalized: normalized,
			Source:     c.Source,
			CreatedAt:  now,
		})
		report.Processed++
	}

	if err := p.keywordRepo.UpsertBatch(ctx, state.records); err != nil {
		return nil, nil, fmt.Errorf("persist candidates: %w", err)
	}

	statsAfter := p.gateway.Stats()
	report.APICalls = statsAfter.APICalls - statsBefore.APICalls
	report.CacheHits = statsAfter.CacheHits - statsBefore.CacheHits
	report.Retries = statsAfter.Retries - statsBefore.Retries

	payload, err := json.Marshal(map[string]int{"keywords_count": len(state.records)})
	if err != nil {
		return nil, nil, err
	}
	return report, payload, nil
}

// runProcessing derives intent and trend direction for every record.
// The derivations are pure recomputations, so re-entering the stage is
// harmless.
func (p *pipelineUseCase) runProcessing(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}

	for _, rec := range state.records {
		if rec.Flagged {
			report.Skipped++
			continue
		}
		rec.Intent = classifyIntent(rec.Text)
		rec.TrendDirection, rec.TrendDelta = trendDirection(rec.TrendSeries)
		report.Processed++
	}

	if err := p.keywordRepo.UpsertBatch(ctx, state.records); err != nil {
		return nil, nil, fmt.Errorf("persist processed records: %w", err)
	}
	return report, nil, nil
}

// runScoring computes difficulty, traffic potential and opportunity
// for every record, then min-max normalizes opportunity across the
// batch. The normalization is batch-relative: scores from different
// runs are not comparable.
func (p *pipelineUseCase) runScoring(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}

	raw := make([]float64, len(state.records))
	for i, rec := range state.records {
		snapshot, err := p.snapshotRepo.FindByKeyword(ctx, state.project.ID, rec.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("load snapshot for %s: %w", rec.ID, err)
		}

		rec.Difficulty = scoring.Difficulty(snapshot, rec.Text, p.scoringCfg)
		rec.TrafficPotential = scoring.TrafficPotential(rec.Volume, rec.Intent, rec.SerpFeatures, p.scoringCfg)
		raw[i] = scoring.RawOpportunity(
			rec.TrafficPotential, rec.Difficulty.Composite, rec.CPC,
			rec.Intent, state.project.ContentFocus, rec.SerpFeatures, p.scoringCfg,
		)
		report.Processed++
	}

	for i, normalized := range scoring.NormalizeOpportunity(raw) {
		state.records[i].Opportunity = normalized
	}

	if err := p.keywordRepo.UpsertBatch(ctx, state.records); err != nil {
		return nil, nil, fmt.Errorf("persist scored records: %w", err)
	}
	return report, nil, nil
}

// runClustering fetches embedding vectors for the clusterable records
// and builds the two-level hierarchy plus the sibling link graph.
func (p *pipelineUseCase) runClustering(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}

	var clusterable []*entity.KeywordRecord
	for _, rec := range state.records {
		if rec.Flagged {
			report.Skipped++
			continue
		}
		clusterable = append(clusterable, rec)
	}

	texts := make([]string, len(clusterable))
	for i, rec := range clusterable {
		texts[i] = rec.Normalized
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed keywords: %w", err)
	}
	if len(vectors) != len(clusterable) {
		return nil, nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(clusterable))
	}
	for i, rec := range clusterable {
		rec.Embedding = vectors[i]
	}

	state.topics, state.pages, state.links = p.clusterer.Build(state.project.ID, clusterable)
	report.Processed = len(clusterable)

	nodes := make([]*entity.ClusterNode, 0, len(state.topics)+len(state.pages))
	nodes = append(nodes, state.topics...)
	nodes = append(nodes, state.pages...)
	if err := p.clusterRepo.UpsertBatch(ctx, nodes); err != nil {
		return nil, nil, fmt.Errorf("persist clusters: %w", err)
	}
	if err := p.clusterRepo.SaveLinks(ctx, state.project.ID, state.links); err != nil {
		return nil, nil, fmt.Errorf("persist sibling links: %w", err)
	}
	if err := p.keywordRepo.UpsertBatch(ctx, state.records); err != nil {
		return nil, nil, fmt.Errorf("persist embedded records: %w", err)
	}

	payload, err := json.Marshal(map[string]int{
		"topics": len(state.topics),
		"pages":  len(state.pages),
		"links":  len(state.links),
	})
	if err != nil {
		return nil, nil, err
	}
	return report, payload, nil
}

// runBriefs assembles the immutable result set and hands it to the
// brief collaborator. A run resumed directly into this stage rebuilds
// the cluster output from persistence.
func (p *pipelineUseCase) runBriefs(ctx context.Context, state *runState) (*entity.StageReport, json.RawMessage, error) {
	report := &entity.StageReport{}

	if state.topics == nil && state.pages == nil {
		nodes, err := p.clusterRepo.FindByProject(ctx, state.project.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("reload clusters: %w", err)
		}
		for _, node := range nodes {
			if node.Level == entity.LevelTopic {
				state.topics = append(state.topics, node)
			} else {
				state.pages = append(state.pages, node)
			}
		}
		state.links, err = p.clusterRepo.FindLinks(ctx, state.project.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("reload sibling links: %w", err)
		}
	}

	state.result = &entity.RunResult{
		ProjectID:   state.project.ID,
		RunID:       state.runID,
		Keywords:    state.records,
		Topics:      state.topics,
		Pages:       state.pages,
		Links:       state.links,
		Reports:     state.reports,
		CompletedAt: time.Now().UTC(),
	}

	if err := p.briefs.Publish(ctx, state.result); err != nil {
		return nil, nil, fmt.Errorf("publish briefs: %w", err)
	}
	report.Processed = len(state.pages)
	metrics.KeywordsProcessed.WithLabelValues(string(entity.StageBriefs), "enriched").Add(float64(len(state.records)))
	return report, nil, nil
}

// Intent classification is a keyword-surface heuristic; the full
// classifier with confidence scores is an external collaborator.
var (
	questionMarkers      = []string{"how", "what", "why", "when", "where", "who", "guide", "tutorial"}
	transactionalMarkers = []string{"buy", "price", "pricing", "cheap", "discount", "coupon", "order", "deal"}
	commercialMarkers    = []string{"best", "review", "reviews", "vs", "top", "compare", "comparison", "alternative"}
)

func classifyIntent(text string) entity.Intent {
	t := " " + strings.ToLower(text) + " "

	if strings.Contains(t, " near me ") || strings.Contains(t, " nearby ") {
		return entity.IntentLocal
	}
	for _, m := range transactionalMarkers {
		if strings.Contains(t, " "+m+" ") {
			return entity.IntentTransactional
		}
	}
	for _, m := range commercialMarkers {
		if strings.Contains(t, " "+m+" ") {
			return entity.IntentCommercial
		}
	}
	for _, m := range questionMarkers {
		if strings.HasPrefix(strings.TrimSpace(strings.ToLower(text)), m+" ") {
			return entity.IntentInformational
		}
	}
	return entity.IntentInformational
}

// trendDirection compares the mean of the series' second half against
// its first half: a shift beyond 10% either way counts as movement.
func trendDirection(series []float64) (entity.TrendDirection, float64) {
	if len(series) < 2 {
		return entity.TrendUnknown, 0
	}

	mid := len(series) / 2
	var first, second float64
	for _, v := range series[:mid] {
		first += v
	}
	first /= float64(mid)
	for _, v := range series[mid:] {
		second += v
	}
	second /= float64(len(series) - mid)

	base := first
	if base < 1 {
		base = 1
	}
	delta := (second - first) / base

	switch {
	case delta > 0.1:
		return entity.TrendRising, delta
	case delta < -0.1:
		return entity.TrendDeclining, delta
	default:
		return entity.TrendStable, delta
	}
}
