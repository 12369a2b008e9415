package briefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/user/keyword-service/internal/entity"
)

// SinkImpl writes one content brief per page cluster as a JSON document
// under <dir>/<project_id>/. Writes go through a temp file and rename
// so a crash mid-run never leaves a truncated brief behind.
type SinkImpl struct {
	dir string
}

// New creates a filesystem brief sink rooted at dir.
func New(dir string) *SinkImpl {
	return &SinkImpl{dir: dir}
}

// brief is the on-disk document for one page cluster.
type brief struct {
	ProjectID     string           `json:"project_id"`
	RunID         string           `json:"run_id"`
	PageID        string           `json:"page_id"`
	Title         string           `json:"title"`
	Intent        string           `json:"intent"`
	PrimaryTarget briefKeyword     `json:"primary_target"`
	Supporting    []briefKeyword   `json:"supporting_keywords"`
	TotalVolume   int              `json:"total_volume"`
	AvgDifficulty float64          `json:"avg_difficulty"`
	InternalLinks []briefLink      `json:"internal_link_suggestions"`
	SerpFeatures  []string         `json:"serp_features"`
	TrendNote     string           `json:"trend_note,omitempty"`
}

type briefKeyword struct {
	Text        string  `json:"text"`
	Volume      int     `json:"volume"`
	Difficulty  float64 `json:"difficulty"`
	Opportunity float64 `json:"opportunity"`
}

type briefLink struct {
	TargetPageID string  `json:"target_page_id"`
	TargetTitle  string  `json:"target_title"`
	Similarity   float64 `json:"similarity"`
}

// Publish renders and writes a brief for every page cluster in the
// result set.
func (s *SinkImpl) Publish(ctx context.Context, result *entity.RunResult) error {
	outDir := filepath.Join(s.dir, result.ProjectID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create briefs dir: %w", err)
	}

	byID := make(map[string]*entity.KeywordRecord, len(result.Keywords))
	for _, rec := range result.Keywords {
		byID[rec.ID] = rec
	}
	pageByID := make(map[string]*entity.ClusterNode, len(result.Pages))
	for _, page := range result.Pages {
		pageByID[page.ID] = page
	}
	linksByPage := make(map[string][]entity.SiblingLink)
	for _, link := range result.Links {
		linksByPage[link.A] = append(linksByPage[link.A], link)
		linksByPage[link.B] = append(linksByPage[link.B], link)
	}

	for _, page := range result.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := s.render(result, page, byID, pageByID, linksByPage[page.ID])
		if err := s.write(outDir, page.ID, doc); err != nil {
			return err
		}
	}
	slog.Info("Briefs published", "project_id", result.ProjectID, "pages", len(result.Pages), "dir", outDir)
	return nil
}

func (s *SinkImpl) render(result *entity.RunResult, page *entity.ClusterNode,
	byID map[string]*entity.KeywordRecord, pageByID map[string]*entity.ClusterNode,
	links []entity.SiblingLink) *brief {

	doc := &brief{
		ProjectID:     result.ProjectID,
		RunID:         result.RunID,
		PageID:        page.ID,
		Title:         page.Label,
		TotalVolume:   page.TotalVolume,
		AvgDifficulty: page.AvgDifficulty,
	}

	features := make(map[string]bool)
	for _, id := range page.KeywordIDs {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		kw := briefKeyword{
			Text:        rec.Text,
			Volume:      rec.Volume,
			Opportunity: rec.Opportunity,
		}
		if rec.Difficulty != nil {
			kw.Difficulty = rec.Difficulty.Composite
		}
		if id == page.HubKeywordID {
			doc.PrimaryTarget = kw
			doc.Intent = string(rec.Intent)
			if rec.TrendDirection == entity.TrendRising || rec.TrendDirection == entity.TrendDeclining {
				doc.TrendNote = fmt.Sprintf("search interest is %s (%.0f%% shift)",
					rec.TrendDirection, rec.TrendDelta*100)
			}
		} else {
			doc.Supporting = append(doc.Supporting, kw)
		}
		for _, f := range rec.SerpFeatures {
			if !features[f] {
				features[f] = true
				doc.SerpFeatures = append(doc.SerpFeatures, f)
			}
		}
	}

	for _, link := range links {
		targetID := link.A
		if targetID == page.ID {
			targetID = link.B
		}
		target, ok := pageByID[targetID]
		if !ok {
			continue
		}
		doc.InternalLinks = append(doc.InternalLinks, briefLink{
			TargetPageID: targetID,
			TargetTitle:  target.Label,
			Similarity:   link.Similarity,
		})
	}
	return doc
}

func (s *SinkImpl) write(dir, pageID string, doc *brief) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brief %s: %w", pageID, err)
	}

	final := filepath.Join(dir, pageID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write brief %s: %w", pageID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("finalize brief %s: %w", pageID, err)
	}
	return nil
}
