package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Segment is one labelled share of a whole.
type Segment struct {
	Label string
	Value float64
}

const (
	barRune         = '█'
	defaultBarWidth = 30
)

// Proportions returns each segment's fraction of the total. Negative values
// count as zero; an all-zero input yields all zeros.
func Proportions(segments []Segment) []float64 {
	out := make([]float64, len(segments))
	var total float64
	for _, s := range segments {
		total += math.Max(s.Value, 0)
	}
	if total <= 0 {
		return out
	}
	for i, s := range segments {
		out[i] = math.Max(s.Value, 0) / total
	}
	return out
}

// RenderBreakdown prints one horizontal bar per segment, scaled to its share
// of the total, followed by the percentage and the raw value.
func RenderBreakdown(w io.Writer, title string, segments []Segment, barWidth int, unit string) error {
	if len(segments) == 0 {
		return nil
	}
	if barWidth <= 0 {
		barWidth = defaultBarWidth
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}

	shares := Proportions(segments)
	rows := make([][]string, 0, len(segments))
	for i, s := range segments {
		filled := int(math.Round(shares[i] * float64(barWidth)))
		bar := strings.Repeat(string(barRune), filled) + strings.Repeat(" ", barWidth-filled)
		rows = append(rows, []string{
			s.Label,
			bar,
			fmt.Sprintf("%.1f%%", shares[i]*100),
			fmt.Sprintf("%.2f%s", s.Value, unit),
		})
	}
	for _, line := range FormatTable(nil, rows, map[int]bool{2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
