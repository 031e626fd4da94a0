package analysis

import (
	"fmt"

	"github.com/verte-zerg/tuisleep/internal/score"
)

// Presenter renders the artifacts of a report. Implementations decide how
// trends, breakdowns and scores look; the pipeline only decides what is shown.
type Presenter interface {
	RenderTrend(title string, points []TrendPoint) error
	RenderBreakdown(title string, slices []Slice) error
	RenderScore(label string, value int, mood score.Mood, suggestion string) error
}

// Present drives a presenter through the trend, the breakdown and the score,
// stopping at the first rendering error.
func Present(r Report, p Presenter) error {
	if err := p.RenderTrend(TrendTitle, r.Trend); err != nil {
		return fmt.Errorf("failed to render trend: %w", err)
	}
	if err := p.RenderBreakdown(r.BreakdownTitle(), r.Breakdown); err != nil {
		return fmt.Errorf("failed to render breakdown: %w", err)
	}
	if err := p.RenderScore(ScoreLabel, r.Score, r.Mood, r.Suggestion); err != nil {
		return fmt.Errorf("failed to render score: %w", err)
	}
	return nil
}
