// Package analysis runs the weekly sleep pipeline: validate, extract
// features, predict, aggregate and pick a suggestion.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuisleep/internal/dataset"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/predictor"
	"github.com/verte-zerg/tuisleep/internal/score"
)

// Recorder persists successful analyses. It returns the stored record ID.
type Recorder interface {
	InsertAnalysis(ctx context.Context, rec model.AnalysisRecord, days []model.DayPrediction) (string, error)
}

// Engine holds a loaded score model. It is safe for concurrent use as long
// as the model is.
type Engine struct {
	model    predictor.ScoreModel
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-run entries.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder stores every successful report.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wraps a score model.
func NewEngine(m predictor.ScoreModel, opts ...Option) *Engine {
	e := &Engine{
		model:  m,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze scores one week. A dataset without exactly seven records fails
// with dataset.ErrMalformedDataset before the model is consulted.
func (e *Engine) Analyze(ctx context.Context, ds model.WeeklyDataset) (Report, error) {
	start := time.Now()
	logger := e.logger.With(zap.String("source", ds.Source))

	if err := dataset.Validate(ds.Records); err != nil {
		logger.Warn("dataset rejected", zap.Error(err))
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	features := score.FeatureMatrix(ds)
	predictions := e.model.Predict(features)
	if len(predictions) != len(features) {
		return Report{}, fmt.Errorf("model returned %d predictions for %d rows", len(predictions), len(features))
	}
	total, err := score.Aggregate(predictions)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate predictions: %w", err)
	}

	last, _ := ds.Last()
	report := Report{
		CreatedAt:     e.now().UTC(),
		Dataset:       ds,
		Features:      features,
		Predictions:   predictions,
		Score:         total,
		Mood:          score.MoodFor(total),
		Suggestion:    score.SuggestionFor(total),
		Trend:         trendOf(ds),
		BreakdownDate: last.Date,
		Breakdown:     breakdownOf(last),
	}

	if e.recorder != nil {
		id, err := e.recorder.InsertAnalysis(ctx, report.Record(), report.Days())
		if err != nil {
			logger.Error("failed to record analysis", zap.Error(err))
		} else {
			report.RecordID = id
		}
	}

	logger.Info("analysis finished",
		zap.Int("score", report.Score),
		zap.String("mood", string(report.Mood)),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// AnalyzeFile loads a dataset from path, or the bundled week when path is
// empty, and analyzes it.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (Report, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return Report{}, err
	}
	return e.Analyze(ctx, ds)
}
