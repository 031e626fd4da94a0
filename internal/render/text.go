// Package render writes analysis reports as plain text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/chart"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/score"
)

const shortDate = "Jan 02"

// Text renders charts and the score line to a writer.
type Text struct {
	w          io.Writer
	width      int
	height     int
	forceColor bool
}

// TextOption configures a Text presenter.
type TextOption func(*Text)

// WithWidth fixes the total output width instead of probing the terminal.
func WithWidth(width int) TextOption {
	return func(t *Text) { t.width = width }
}

// WithHeight sets the trend plot height in rows.
func WithHeight(height int) TextOption {
	return func(t *Text) { t.height = height }
}

// WithColor forces ANSI colors even when w is not a terminal.
func WithColor(force bool) TextOption {
	return func(t *Text) { t.forceColor = force }
}

// NewText returns a presenter writing to w.
func NewText(w io.Writer, opts ...TextOption) *Text {
	t := &Text{w: w, height: 8}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ analysis.Presenter = (*Text)(nil)

// RenderTrend draws the values as a braille line with a date table below.
func (t *Text) RenderTrend(title string, points []analysis.TrendPoint) error {
	if len(points) == 0 {
		return nil
	}
	values := make([]float64, len(points))
	rows := make([][]string, len(points))
	for i, p := range points {
		values[i] = p.Value
		rows[i] = []string{p.Date.Format(model.DateLayout), fmt.Sprintf("%.2f", p.Value)}
	}
	opts := chart.PlotOptions{
		Height:     t.height,
		XLabels:    []string{points[0].Date.Format(shortDate), points[len(points)-1].Date.Format(shortDate)},
		Unit:       "h",
		ForceColor: t.forceColor,
	}
	if t.width > 0 {
		opts.Width = chart.PlotWidthFor(t.width)
	}
	if err := chart.PlotSeries(t.w, title, []chart.Series{{Name: "Total sleep (h)", Values: values}}, opts); err != nil {
		return err
	}
	if err := t.lines(chart.FormatTable([]string{"Date", "Hours"}, rows, map[int]bool{1: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

// RenderBreakdown draws one proportional bar per slice.
func (t *Text) RenderBreakdown(title string, slices []analysis.Slice) error {
	segments := make([]chart.Segment, len(slices))
	for i, s := range slices {
		segments[i] = chart.Segment{Label: s.Label, Value: s.Hours}
	}
	if err := chart.RenderBreakdown(t.w, title, segments, t.barWidth(), "h"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

// RenderScore prints the score with its mood and the suggestion.
func (t *Text) RenderScore(label string, value int, mood score.Mood, suggestion string) error {
	if _, err := fmt.Fprintf(t.w, "%s: %d %s\n", label, value, mood.Emoji()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.w, "Suggestion: %s\n", suggestion)
	return err
}

// RenderError prints a failed analysis in place of the report.
func (t *Text) RenderError(err error) error {
	_, werr := fmt.Fprintf(t.w, "Error: %s\n", err)
	return werr
}

// RenderPredictions lists the per-day model output.
func (t *Text) RenderPredictions(days []model.DayPrediction) error {
	if len(days) == 0 {
		return nil
	}
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{d.Date.Format(model.DateLayout), fmt.Sprintf("%.2f", d.TotalSleepHrs), fmt.Sprintf("%.1f", d.Prediction)}
	}
	if _, err := fmt.Fprintln(t.w, "Daily predictions"); err != nil {
		return err
	}
	if err := t.lines(chart.FormatTable([]string{"Date", "Hours", "Predicted"}, rows, map[int]bool{1: true, 2: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

func (t *Text) barWidth() int {
	if t.width <= 0 {
		return 0
	}
	// label, percentage and hours columns take roughly 24 cells
	return max(t.width-24, 10)
}

func (t *Text) lines(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(t.w, strings.Join(lines, "\n")+"\n")
	return err
}
