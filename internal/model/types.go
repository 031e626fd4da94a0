// Package model defines shared data structures.
package model

import "time"

// DaysPerWeek is the number of daily records an analysis requires.
const DaysPerWeek = 7

// DateLayout is the calendar date format used in datasets and filters.
const DateLayout = "2006-01-02"

// AnalysisConfig defines settings for a single analysis run.
type AnalysisConfig struct {
	ModelPath string
	DataPath  string
	Record    bool
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// DailyRecord is one calendar day of sleep telemetry.
type DailyRecord struct {
	Date             time.Time
	TotalSleepHrs    float64
	LightSleepHrs    float64
	DeepSleepHrs     float64
	RemSleepHrs      float64
	AwakeHrs         float64
	LatencyMins      float64
	Interruptions    int
	ConsistencyScore float64
}

// WeeklyDataset is one week of daily records in the order they were supplied.
type WeeklyDataset struct {
	Source  string
	Records []DailyRecord
}

// Last returns the chronologically last record of the week.
func (d WeeklyDataset) Last() (DailyRecord, bool) {
	if len(d.Records) == 0 {
		return DailyRecord{}, false
	}
	return d.Records[len(d.Records)-1], true
}

// FeatureVector is the positional model input for one day.
type FeatureVector [8]float64

// AnalysisRecord summarizes a stored analysis for reporting.
type AnalysisRecord struct {
	ID         string
	CreatedAt  time.Time
	Source     string
	FirstDate  time.Time
	LastDate   time.Time
	Score      int
	Mood       string
	Suggestion string
}

// DayPrediction stores one day's prediction alongside its input.
type DayPrediction struct {
	Date          time.Time
	TotalSleepHrs float64
	Prediction    float64
}
