// Package sample builds synthetic sleep weeks for demos and tests.
package sample

import (
	"math"
	"math/rand"
	"time"

	"github.com/verte-zerg/tuisleep/internal/model"
)

// interruptionWeights biases nightly interruptions toward one to three.
var interruptionWeights = []float64{1, 3, 3, 2, 1, 0.5}

// Generator produces randomized but plausible sleep records.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator with a fixed seed, or a time-based one when seed is 0.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Week returns seven consecutive days starting at start.
func (g *Generator) Week(start time.Time) model.WeeklyDataset {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	records := make([]model.DailyRecord, 0, model.DaysPerWeek)
	for i := 0; i < model.DaysPerWeek; i++ {
		records = append(records, g.Day(start.AddDate(0, 0, i)))
	}
	return model.WeeklyDataset{Source: "sample", Records: records}
}

// Day returns one night of sleep for date.
func (g *Generator) Day(date time.Time) model.DailyRecord {
	asleep := clamp(g.rnd.NormFloat64()*0.8+6.6, 4, 9.5)
	deep := round1(asleep * g.between(0.15, 0.27))
	rem := round1(asleep * g.between(0.2, 0.27))
	light := round1(math.Max(asleep-deep-rem, 0.5))
	interruptions := g.weighted(interruptionWeights)
	awake := round1(0.1*float64(interruptions) + g.between(0.1, 0.4))
	return model.DailyRecord{
		Date:             date,
		TotalSleepHrs:    round1(light + deep + rem + awake/2),
		LightSleepHrs:    light,
		DeepSleepHrs:     deep,
		RemSleepHrs:      rem,
		AwakeHrs:         awake,
		LatencyMins:      math.Round(g.between(5, 35)),
		Interruptions:    interruptions,
		ConsistencyScore: math.Round(clamp(90-6*float64(interruptions)+g.rnd.NormFloat64()*5, 0, 100)),
	}
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func (g *Generator) weighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
