package score

import "math"

// Mood is the coarse sentiment shown next to the score.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// Emoji returns the display glyph for the mood.
func (m Mood) Emoji() string {
	switch m {
	case MoodPositive:
		return "😀"
	case MoodNeutral:
		return "😐"
	default:
		return "😞"
	}
}

// Band maps every score at or above Min to Value.
type Band[T any] struct {
	Min   int
	Value T
}

// Table is an ordered list of bands with strictly descending minimums.
// The last band is the catch-all.
type Table[T any] []Band[T]

// Lookup returns the value of the first band whose minimum the score reaches.
func (t Table[T]) Lookup(score int) T {
	for _, b := range t {
		if score >= b.Min {
			return b.Value
		}
	}
	return t[len(t)-1].Value
}

const catchAll = math.MinInt

// MoodTable is independent of SuggestionTable; the bands differ.
var MoodTable = Table[Mood]{
	{Min: 80, Value: MoodPositive},
	{Min: 60, Value: MoodNeutral},
	{Min: catchAll, Value: MoodNegative},
}

var SuggestionTable = Table[string]{
	{Min: 90, Value: "Excellent sleep quality! Keep maintaining your routine."},
	{Min: 80, Value: "You're doing great! Try to reduce screen time before bed."},
	{Min: 70, Value: "Your sleep is decent. Aim for more deep and REM sleep."},
	{Min: 60, Value: "Consider reducing interruptions and sleep latency."},
	{Min: catchAll, Value: "Poor sleep quality. Improve consistency and sleep hygiene."},
}

// MoodFor selects the mood for an aggregate score.
func MoodFor(score int) Mood {
	return MoodTable.Lookup(score)
}

// SuggestionFor selects the suggestion for an aggregate score.
func SuggestionFor(score int) string {
	return SuggestionTable.Lookup(score)
}
