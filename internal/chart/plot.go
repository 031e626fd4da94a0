// Package chart renders text charts for terminal output.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions controls the size and decoration of a line plot.
type PlotOptions struct {
	Width  int
	Height int
	// XLabels annotate the first and last sample under the plot.
	XLabels []string
	// Unit is appended to the axis range line, e.g. "h".
	Unit       string
	ForceColor bool
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 6
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// dashPattern lights the first lit columns of every run of every dot columns.
type dashPattern struct {
	label string
	every int
	lit   int
}

func (p dashPattern) draws(x int) bool {
	if p.every <= 1 {
		return true
	}
	return abs(x)%p.every < p.lit
}

var dashPatterns = [...]dashPattern{
	{"solid", 1, 1},
	{"dashed", 6, 3},
	{"dotted", 4, 1},
	{"dashdot", 8, 3},
}

// Cyan, magenta, yellow, green, blue.
var seriesColors = [...]string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m", "\x1b[34m"}

func patternFor(i int) dashPattern { return dashPatterns[i%len(dashPatterns)] }
func colorFor(i int) string        { return seriesColors[i%len(seriesColors)] }

// PlotSeries renders a multi-line braille plot with a shared value axis.
func PlotSeries(w io.Writer, title string, series []Series, opts PlotOptions) error {
	var plotted []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			plotted = append(plotted, s)
		}
	}
	if len(plotted) == 0 {
		return nil
	}

	rows, cols := opts.Height, opts.Width
	if rows <= 0 {
		rows = defaultPlotHeight
	}
	if cols <= 0 {
		cols = PlotWidthFor(terminalWidth())
	}
	cols = max(cols, minPlotWidth)

	scale := newValueScale(plotted, rows*4)
	cv := newCanvas(len(plotted), rows, cols)
	for i, s := range plotted {
		cv.trace(i, resampleSeries(s.Values, cols), scale, patternFor(i))
	}

	color := shouldUseColor(w, opts.ForceColor)
	var out strings.Builder
	if title != "" {
		out.WriteString(title + "\n")
	}
	fmt.Fprintf(&out, "Range: %.2f%s to %.2f%s\n", scale.lo, opts.Unit, scale.hi, opts.Unit)
	labels := scale.axisLabels(rows)
	for y := 0; y < rows; y++ {
		fmt.Fprintf(&out, "%*s%s", axisLabelWidth, labels[y], axisSeparator)
		for x := 0; x < cols; x++ {
			mask, owner := cv.cell(x, y)
			if color && owner >= 0 {
				out.WriteString(colorFor(owner) + string(brailleRune(mask)) + colorReset)
				continue
			}
			out.WriteRune(brailleRune(mask))
		}
		out.WriteByte('\n')
	}
	if line := xAxisLine(opts.XLabels, cols); line != "" {
		out.WriteString(line + "\n")
	}
	out.WriteString(legend(plotted, color) + "\n")

	_, err := io.WriteString(w, out.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisWidth(), minPlotWidth)
}

func axisWidth() int {
	return axisLabelWidth + utf8.RuneCountInString(axisSeparator)
}

func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return terminalWidthBackup
}

// shouldUseColor honours NO_COLOR first, then ForceColor, then whether w is a terminal.
func shouldUseColor(w io.Writer, force bool) bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case force:
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// valueScale maps values onto dot rows, top row first.
type valueScale struct {
	lo, hi float64
	dots   int
}

func newValueScale(series []Series, dots int) valueScale {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		lo, hi = 0, 0
	}
	// Flat data still needs a band to draw in.
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	return valueScale{lo: lo, hi: hi, dots: dots}
}

func (s valueScale) dotRow(v float64) int {
	if s.dots <= 1 {
		return 0
	}
	frac := (v - s.lo) / (s.hi - s.lo)
	row := int(math.Round((1 - frac) * float64(s.dots-1)))
	return min(max(row, 0), s.dots-1)
}

// axisLabels marks the top, middle and bottom character rows.
func (s valueScale) axisLabels(rows int) []string {
	labels := make([]string, rows)
	if rows == 0 {
		return labels
	}
	labels[0] = fmt.Sprintf("%.1f", s.hi)
	if rows > 2 {
		labels[rows/2] = fmt.Sprintf("%.1f", (s.lo+s.hi)/2)
	}
	if rows > 1 {
		labels[rows-1] = fmt.Sprintf("%.1f", s.lo)
	}
	return labels
}

func xAxisLine(labels []string, cols int) string {
	if len(labels) == 0 {
		return ""
	}
	indent := strings.Repeat(" ", axisWidth())
	first, last := labels[0], labels[len(labels)-1]
	if len(labels) == 1 {
		return indent + first
	}
	gap := cols - utf8.RuneCountInString(first) - utf8.RuneCountInString(last)
	if gap < 1 {
		return indent + first + " … " + last
	}
	return indent + first + strings.Repeat(" ", gap) + last
}

func legend(series []Series, color bool) string {
	entries := make([]string, len(series))
	for i, s := range series {
		entry := fmt.Sprintf("%c %s (%s)", brailleRune(0x01), s.Name, patternFor(i).label)
		if color {
			entry = colorFor(i) + entry + colorReset
		}
		entries[i] = entry
	}
	return "Legend: " + strings.Join(entries, "  ")
}

// resampleSeries fits values to n samples: averaging buckets when shrinking,
// interpolating linearly when stretching.
func resampleSeries(values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	out := make([]float64, n)
	switch {
	case len(values) == n:
		copy(out, values)
	case len(values) > n:
		for i := range out {
			lo := i * len(values) / n
			hi := max((i+1)*len(values)/n, lo+1)
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	case n == 1:
		out[0] = values[0]
	default:
		step := float64(len(values)-1) / float64(n-1)
		for i := range out {
			at := float64(i) * step
			j := int(at)
			if j >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			t := at - float64(j)
			out[i] = values[j] + (values[j+1]-values[j])*t
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
