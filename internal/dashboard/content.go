package dashboard

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/chart"
	"github.com/verte-zerg/tuisleep/internal/history"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/render"
	"github.com/verte-zerg/tuisleep/internal/score"
)

// tabContent renders a report into one string per chart tab.
type tabContent struct {
	width  int
	trend  bytes.Buffer
	stages bytes.Buffer
	score  string
}

var _ analysis.Presenter = (*tabContent)(nil)

func (c *tabContent) text(buf *bytes.Buffer) *render.Text {
	return render.NewText(buf,
		render.WithWidth(c.width),
		render.WithHeight(plotHeight),
		render.WithColor(true),
	)
}

func (c *tabContent) RenderTrend(title string, points []analysis.TrendPoint) error {
	return c.text(&c.trend).RenderTrend(title, points)
}

func (c *tabContent) RenderBreakdown(title string, slices []analysis.Slice) error {
	return c.text(&c.stages).RenderBreakdown(title, slices)
}

func (c *tabContent) RenderScore(label string, value int, mood score.Mood, suggestion string) error {
	c.score = scoreCard(label, value, mood, suggestion, c.width)
	return nil
}

func scoreCard(label string, value int, mood score.Mood, suggestion string, width int) string {
	style := scoreStyle(mood)
	inner := min(max(width-6, 20), 60)
	content := strings.Join([]string{
		cardTitleStyle.Render(label),
		style.Render(fmt.Sprintf("%d %s", value, mood.Emoji())),
		"",
		wrapText(suggestion, inner),
	}, "\n")
	return cardStyle.Width(inner + 2).Render(content)
}

func scoreStyle(mood score.Mood) lipgloss.Style {
	switch mood {
	case score.MoodPositive:
		return goodScoreStyle
	case score.MoodNeutral:
		return fairScoreStyle
	default:
		return poorScoreStyle
	}
}

// weekCards summarizes the week's inputs.
func weekCards(ds model.WeeklyDataset, width int) string {
	n := float64(len(ds.Records))
	if n == 0 {
		return ""
	}
	var total, deep, latency float64
	var interruptions int
	for _, rec := range ds.Records {
		total += rec.TotalSleepHrs
		deep += rec.DeepSleepHrs
		latency += rec.LatencyMins
		interruptions += rec.Interruptions
	}
	cards := []string{
		metricCard("Avg Sleep", fmt.Sprintf("%.1fh", total/n)),
		metricCard("Avg Deep", fmt.Sprintf("%.1fh", deep/n)),
		metricCard("Avg Latency", fmt.Sprintf("%.0f min", latency/n)),
		metricCard("Interruptions", fmt.Sprintf("%d", interruptions)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func predictionTable(days []model.DayPrediction) string {
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{
			d.Date.Format(model.DateLayout),
			fmt.Sprintf("%.2f", d.TotalSleepHrs),
			fmt.Sprintf("%.1f", d.Prediction),
		}
	}
	lines := chart.FormatTable([]string{"Date", "Hours", "Predicted"}, rows, map[int]bool{1: true, 2: true})
	return headerStyle.Render("Daily predictions") + "\n" + strings.Join(lines, "\n")
}

func renderScoreTab(report analysis.Report, card string, width int) string {
	parts := []string{card, weekCards(report.Dataset, width), predictionTable(report.Days())}
	return strings.Join(parts, "\n\n")
}

func historySummary(analyses []model.AnalysisRecord) string {
	s, ok := history.Summarize(analyses)
	if !ok {
		return "No analyses recorded yet."
	}
	return fmt.Sprintf("Analyses: %d  Avg: %.1f  Best: %d  Worst: %d  Trend: %s",
		s.Count, s.Avg, s.Best, s.Worst, chart.Sparkline(history.Report{Analyses: analyses}.Scores()))
}

func historyColumns(width int) []table.Column {
	cols := []table.Column{
		{Title: history.TableHeaders[0], Width: 16},
		{Title: history.TableHeaders[1], Width: 16},
		{Title: history.TableHeaders[2], Width: 22},
		{Title: history.TableHeaders[3], Width: 5},
		{Title: history.TableHeaders[4], Width: 4},
	}
	used := 0
	for _, c := range cols {
		used += c.Width + 1
	}
	if extra := width - used; extra > 0 {
		cols[1].Width += extra
	}
	return cols
}

func historyRows(analyses []model.AnalysisRecord) []table.Row {
	raw := history.TableRows(analyses)
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		rows[i] = table.Row(r)
	}
	return rows
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}
