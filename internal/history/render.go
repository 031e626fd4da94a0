package history

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/tuisleep/internal/chart"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

// Summary holds aggregate figures over a set of analyses.
type Summary struct {
	Count  int
	Avg    float64
	Best   int
	Worst  int
	Latest model.AnalysisRecord
	Moods  map[score.Mood]int
}

// Summarize computes the summary; ok is false when there is nothing to summarize.
func Summarize(analyses []model.AnalysisRecord) (s Summary, ok bool) {
	if len(analyses) == 0 {
		return Summary{}, false
	}
	s = Summary{
		Count:  len(analyses),
		Best:   analyses[0].Score,
		Worst:  analyses[0].Score,
		Latest: analyses[len(analyses)-1],
		Moods:  map[score.Mood]int{},
	}
	var total int
	for _, a := range analyses {
		total += a.Score
		s.Best = max(s.Best, a.Score)
		s.Worst = min(s.Worst, a.Score)
		s.Moods[score.Mood(a.Mood)]++
	}
	s.Avg = float64(total) / float64(len(analyses))
	return s, true
}

// RenderSummary prints a summary of the analyses.
func RenderSummary(w io.Writer, analyses []model.AnalysisRecord) error {
	s, ok := Summarize(analyses)
	if !ok {
		_, err := fmt.Fprintln(w, "No analyses found.")
		return err
	}
	latest := s.Latest
	lines := []string{
		"Summary",
		fmt.Sprintf("Analyses: %d", s.Count),
		fmt.Sprintf("Avg score: %.2f", s.Avg),
		fmt.Sprintf("Best score: %d", s.Best),
		fmt.Sprintf("Worst score: %d", s.Worst),
		fmt.Sprintf("Latest: %d %s (%s to %s)", latest.Score, score.Mood(latest.Mood).Emoji(),
			latest.FirstDate.Format(model.DateLayout), latest.LastDate.Format(model.DateLayout)),
		fmt.Sprintf("Moods: %s %d  %s %d  %s %d",
			score.MoodPositive.Emoji(), s.Moods[score.MoodPositive],
			score.MoodNeutral.Emoji(), s.Moods[score.MoodNeutral],
			score.MoodNegative.Emoji(), s.Moods[score.MoodNegative]),
		fmt.Sprintf("Trend: %s", chart.Sparkline(scoresOf(analyses))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve plots weekly scores with a moving average.
func RenderCurve(w io.Writer, analyses []model.AnalysisRecord, window, totalWidth, height int, useColor bool) error {
	if len(analyses) == 0 {
		return nil
	}
	scores := scoresOf(analyses)
	width := 0
	if totalWidth > 0 {
		width = chart.PlotWidthFor(totalWidth)
	}
	first := analyses[0].CreatedAt.Format(model.DateLayout)
	last := analyses[len(analyses)-1].CreatedAt.Format(model.DateLayout)
	return chart.PlotSeries(w, "Weekly Scores", []chart.Series{
		{Name: "Score", Values: scores},
		{Name: fmt.Sprintf("Avg (%d)", max(window, 1)), Values: chart.MovingAverage(scores, window)},
	}, chart.PlotOptions{
		Width:      width,
		Height:     height,
		XLabels:    []string{first, last},
		ForceColor: useColor,
	})
}

// TableRows formats analyses newest first for tabular display.
func TableRows(analyses []model.AnalysisRecord) [][]string {
	rows := make([][]string, 0, len(analyses))
	for i := len(analyses) - 1; i >= 0; i-- {
		a := analyses[i]
		rows = append(rows, []string{
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
			a.Source,
			a.FirstDate.Format(model.DateLayout) + ".." + a.LastDate.Format(model.DateLayout),
			strconv.Itoa(a.Score),
			score.Mood(a.Mood).Emoji(),
		})
	}
	return rows
}

// TableHeaders names the TableRows columns.
var TableHeaders = []string{"Analyzed", "Source", "Week", "Score", "Mood"}

// RenderTable prints the analyses as a table, newest first.
func RenderTable(w io.Writer, analyses []model.AnalysisRecord) error {
	if len(analyses) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Recent Analyses"); err != nil {
		return err
	}
	for _, line := range chart.FormatTable(TableHeaders, TableRows(analyses), map[int]bool{3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// RenderDays prints the per-day predictions of one analysis.
func RenderDays(w io.Writer, days []model.DayPrediction) error {
	if len(days) == 0 {
		return nil
	}
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{
			d.Date.Format(model.DateLayout),
			fmt.Sprintf("%.2f", d.TotalSleepHrs),
			fmt.Sprintf("%.1f", d.Prediction),
		}
	}
	if _, err := fmt.Fprintln(w, "Latest Week"); err != nil {
		return err
	}
	for _, line := range chart.FormatTable([]string{"Date", "Hours", "Predicted"}, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func scoresOf(analyses []model.AnalysisRecord) []float64 {
	return Report{Analyses: analyses}.Scores()
}
