package analysis

import (
	"fmt"
	"time"

	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

const (
	// TrendTitle heads the sleep duration chart.
	TrendTitle = "Total Sleep Hours Over the Week"
	// ScoreLabel heads the weekly score line.
	ScoreLabel = "Weekly Sleep Score"
)

// TrendPoint is one (date, value) pair of a trend.
type TrendPoint struct {
	Date  time.Time
	Value float64
}

// Slice is one named share of a breakdown.
type Slice struct {
	Label string
	Hours float64
}

// Report is the outcome of one analysis run.
type Report struct {
	// RecordID is set when the run was stored in the history.
	RecordID    string
	CreatedAt   time.Time
	Dataset     model.WeeklyDataset
	Features    []model.FeatureVector
	Predictions []float64
	Score       int
	Mood        score.Mood
	Suggestion  string
	Trend       []TrendPoint
	// BreakdownDate is the date of the last record of the week.
	BreakdownDate time.Time
	Breakdown     []Slice
}

// BreakdownTitle names the stage breakdown after the day it describes.
func (r Report) BreakdownTitle() string {
	return fmt.Sprintf("Sleep Stages on %s", r.BreakdownDate.Format(model.DateLayout))
}

// Days pairs each record with its prediction.
func (r Report) Days() []model.DayPrediction {
	days := make([]model.DayPrediction, 0, len(r.Dataset.Records))
	for i, rec := range r.Dataset.Records {
		if i >= len(r.Predictions) {
			break
		}
		days = append(days, model.DayPrediction{
			Date:          rec.Date,
			TotalSleepHrs: rec.TotalSleepHrs,
			Prediction:    r.Predictions[i],
		})
	}
	return days
}

// Record converts the report into its persisted summary form.
func (r Report) Record() model.AnalysisRecord {
	rec := model.AnalysisRecord{
		ID:         r.RecordID,
		CreatedAt:  r.CreatedAt,
		Source:     r.Dataset.Source,
		Score:      r.Score,
		Mood:       string(r.Mood),
		Suggestion: r.Suggestion,
	}
	if n := len(r.Dataset.Records); n > 0 {
		rec.FirstDate = r.Dataset.Records[0].Date
		rec.LastDate = r.Dataset.Records[n-1].Date
	}
	return rec
}

func trendOf(ds model.WeeklyDataset) []TrendPoint {
	points := make([]TrendPoint, 0, len(ds.Records))
	for _, rec := range ds.Records {
		points = append(points, TrendPoint{Date: rec.Date, Value: rec.TotalSleepHrs})
	}
	return points
}

func breakdownOf(rec model.DailyRecord) []Slice {
	return []Slice{
		{Label: "Light", Hours: rec.LightSleepHrs},
		{Label: "Deep", Hours: rec.DeepSleepHrs},
		{Label: "REM", Hours: rec.RemSleepHrs},
		{Label: "Awake", Hours: rec.AwakeHrs},
	}
}
