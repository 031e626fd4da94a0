// Package history summarizes stored analyses over time.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/tuisleep/internal/model"
)

// Lister reads stored analyses.
type Lister interface {
	ListAnalyses(ctx context.Context, cfg model.HistoryConfig) ([]model.AnalysisRecord, error)
	ListAnalysisDays(ctx context.Context, id string) ([]model.DayPrediction, error)
}

// ParseSince parses a YYYY-MM-DD filter as local midnight. An empty value
// means no filter.
func ParseSince(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	since, err := time.ParseInLocation(model.DateLayout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid since date %q: expected YYYY-MM-DD", value)
	}
	return &since, nil
}

// Report contains precomputed data for history rendering.
type Report struct {
	Analyses []model.AnalysisRecord
	// LatestDays holds the per-day predictions of the newest analysis.
	LatestDays []model.DayPrediction
	Window     int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, src Lister, cfg model.HistoryConfig) (Report, error) {
	analyses, err := src.ListAnalyses(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(analyses) > cfg.Last {
		analyses = analyses[len(analyses)-cfg.Last:]
	}

	report := Report{Analyses: analyses, Window: cfg.CurveWindow}
	if n := len(analyses); n > 0 {
		days, err := src.ListAnalysisDays(ctx, analyses[n-1].ID)
		if err != nil {
			return Report{}, err
		}
		report.LatestDays = days
	}
	return report, nil
}

// Scores returns the weekly scores in chronological order.
func (r Report) Scores() []float64 {
	out := make([]float64, len(r.Analyses))
	for i, a := range r.Analyses {
		out[i] = float64(a.Score)
	}
	return out
}
