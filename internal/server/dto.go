package server

import (
	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/chart"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

// TrendPoint is one day of the sleep duration trend.
type TrendPoint struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// Trend is the sleep duration chart.
type Trend struct {
	Title  string       `json:"title"`
	Points []TrendPoint `json:"points"`
}

// Slice is one sleep stage of the breakdown.
type Slice struct {
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
	Share float64 `json:"share"`
}

// Breakdown is the last-day stage chart.
type Breakdown struct {
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// Score is the aggregate score block.
type Score struct {
	Label      string `json:"label"`
	Value      int    `json:"value"`
	Mood       string `json:"mood"`
	Emoji      string `json:"emoji"`
	Suggestion string `json:"suggestion"`
}

// Day is one day's model output.
type Day struct {
	Date          string  `json:"date"`
	TotalSleepHrs float64 `json:"total_sleep_hrs"`
	Prediction    float64 `json:"prediction"`
}

// ReportResponse is the body of a successful analysis.
type ReportResponse struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source"`
	Trend     Trend     `json:"trend"`
	Breakdown Breakdown `json:"breakdown"`
	Score     Score     `json:"score"`
	Days      []Day     `json:"days"`
}

// AnalysisSummary is one stored analysis.
type AnalysisSummary struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	Source     string `json:"source"`
	FirstDate  string `json:"first_date"`
	LastDate   string `json:"last_date"`
	Score      int    `json:"score"`
	Mood       string `json:"mood"`
	Emoji      string `json:"emoji"`
	Suggestion string `json:"suggestion"`
	Days       []Day  `json:"days,omitempty"`
}

// HistoryResponse lists stored analyses oldest first.
type HistoryResponse struct {
	Analyses []AnalysisSummary `json:"analyses"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// jsonPresenter collects the rendered report into a ReportResponse.
type jsonPresenter struct {
	resp ReportResponse
}

var _ analysis.Presenter = (*jsonPresenter)(nil)

func (p *jsonPresenter) RenderTrend(title string, points []analysis.TrendPoint) error {
	p.resp.Trend = Trend{Title: title, Points: make([]TrendPoint, len(points))}
	for i, pt := range points {
		p.resp.Trend.Points[i] = TrendPoint{Date: pt.Date.Format(model.DateLayout), Hours: pt.Value}
	}
	return nil
}

func (p *jsonPresenter) RenderBreakdown(title string, slices []analysis.Slice) error {
	segments := make([]chart.Segment, len(slices))
	for i, s := range slices {
		segments[i] = chart.Segment{Label: s.Label, Value: s.Hours}
	}
	shares := chart.Proportions(segments)
	p.resp.Breakdown = Breakdown{Title: title, Slices: make([]Slice, len(slices))}
	for i, s := range slices {
		p.resp.Breakdown.Slices[i] = Slice{Label: s.Label, Hours: s.Hours, Share: shares[i]}
	}
	return nil
}

func (p *jsonPresenter) RenderScore(label string, value int, mood score.Mood, suggestion string) error {
	p.resp.Score = Score{
		Label:      label,
		Value:      value,
		Mood:       string(mood),
		Emoji:      mood.Emoji(),
		Suggestion: suggestion,
	}
	return nil
}

func reportResponse(r analysis.Report) (ReportResponse, error) {
	p := &jsonPresenter{}
	if err := analysis.Present(r, p); err != nil {
		return ReportResponse{}, err
	}
	p.resp.ID = r.RecordID
	p.resp.Source = r.Dataset.Source
	p.resp.Days = daysOf(r.Days())
	return p.resp, nil
}

func daysOf(days []model.DayPrediction) []Day {
	out := make([]Day, len(days))
	for i, d := range days {
		out[i] = Day{
			Date:          d.Date.Format(model.DateLayout),
			TotalSleepHrs: d.TotalSleepHrs,
			Prediction:    d.Prediction,
		}
	}
	return out
}

func summaryOf(rec model.AnalysisRecord) AnalysisSummary {
	return AnalysisSummary{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Source:     rec.Source,
		FirstDate:  rec.FirstDate.Format(model.DateLayout),
		LastDate:   rec.LastDate.Format(model.DateLayout),
		Score:      rec.Score,
		Mood:       rec.Mood,
		Emoji:      score.Mood(rec.Mood).Emoji(),
		Suggestion: rec.Suggestion,
	}
}
