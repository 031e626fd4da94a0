package history

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/store"
)

func seedStore(t *testing.T, scores ...int) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tuisleep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	for i, s := range scores {
		mood := "negative"
		switch {
		case s >= 80:
			mood = "positive"
		case s >= 60:
			mood = "neutral"
		}
		rec := model.AnalysisRecord{
			CreatedAt:  base.Add(time.Duration(i) * 7 * 24 * time.Hour),
			Source:     "default",
			FirstDate:  time.Date(2025, 6, 2+7*i, 0, 0, 0, 0, time.UTC),
			LastDate:   time.Date(2025, 6, 8+7*i, 0, 0, 0, 0, time.UTC),
			Score:      s,
			Mood:       mood,
			Suggestion: "-",
		}
		days := []model.DayPrediction{{Date: rec.LastDate, TotalSleepHrs: 7, Prediction: float64(s)}}
		if _, err := st.InsertAnalysis(ctx, rec, days); err != nil {
			t.Fatalf("insert analysis: %v", err)
		}
	}
	return st
}

func TestBuildReport(t *testing.T) {
	st := seedStore(t, 55, 72, 81)
	report, err := BuildReport(context.Background(), st, model.HistoryConfig{Last: 2, CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if diff := cmp.Diff([]float64{72, 81}, report.Scores()); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
	if len(report.LatestDays) != 1 || report.LatestDays[0].Prediction != 81 {
		t.Fatalf("expected latest days of newest analysis, got %v", report.LatestDays)
	}
	if report.Window != 2 {
		t.Fatalf("expected window 2, got %d", report.Window)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	st := seedStore(t)
	report, err := BuildReport(context.Background(), st, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Analyses) != 0 || report.LatestDays != nil {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestSummarize(t *testing.T) {
	st := seedStore(t, 55, 72, 81)
	report, err := BuildReport(context.Background(), st, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	s, ok := Summarize(report.Analyses)
	if !ok {
		t.Fatalf("expected summary")
	}
	if s.Count != 3 || s.Best != 81 || s.Worst != 55 || s.Latest.Score != 81 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Avg < 69.33 || s.Avg > 69.34 {
		t.Fatalf("unexpected average %f", s.Avg)
	}
	if s.Moods["positive"] != 1 || s.Moods["neutral"] != 1 || s.Moods["negative"] != 1 {
		t.Fatalf("unexpected mood counts %v", s.Moods)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	if buf.String() != "No analyses found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	st := seedStore(t, 55, 72, 81)
	report, err := BuildReport(context.Background(), st, model.HistoryConfig{CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, report.Analyses); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	if err := RenderCurve(&buf, report.Analyses, report.Window, 60, 5, false); err != nil {
		t.Fatalf("RenderCurve: %v", err)
	}
	if err := RenderTable(&buf, report.Analyses); err != nil {
		t.Fatalf("RenderTable: %v", err)
	}
	if err := RenderDays(&buf, report.LatestDays); err != nil {
		t.Fatalf("RenderDays: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Analyses: 3",
		"Latest: 81 😀 (2025-06-16 to 2025-06-22)",
		"Weekly Scores",
		"Avg (2)",
		"Recent Analyses",
		"2025-06-16..2025-06-22",
		"Latest Week",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	recent := strings.Index(out, "2025-06-16..2025-06-22")
	oldest := strings.Index(out, "2025-06-02..2025-06-08")
	if recent > oldest {
		t.Fatalf("expected newest analysis first in table")
	}
}

func TestParseSinceUsesLocalMidnight(t *testing.T) {
	got, err := ParseSince("2025-06-02")
	if err != nil {
		t.Fatalf("ParseSince: %v", err)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	if got == nil || !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, err := ParseSince(" "); err != nil || got != nil {
		t.Fatalf("expected no filter for blank value, got %v, %v", got, err)
	}
	if _, err := ParseSince("2025/06/02"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}
