// Package predictor loads and evaluates pre-trained sleep score models.
package predictor

import (
	"math"

	"github.com/verte-zerg/tuisleep/internal/model"
)

// ScoreModel maps feature vectors to daily sleep scores.
// Implementations are immutable after construction and safe for concurrent use.
type ScoreModel interface {
	Predict(rows []model.FeatureVector) []float64
}

type bounds struct {
	min float64
	max float64
}

func (b bounds) clamp(v float64) float64 {
	return math.Min(b.max, math.Max(b.min, v))
}

// Linear is a linear regression over the feature vector.
type Linear struct {
	intercept    float64
	coefficients model.FeatureVector
	bounds       bounds
}

// Predict implements ScoreModel.
func (l *Linear) Predict(rows []model.FeatureVector) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		v := l.intercept
		for j, x := range row {
			v += l.coefficients[j] * x
		}
		out[i] = l.bounds.clamp(v)
	}
	return out
}

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

func (n node) leaf() bool {
	return n.left < 0
}

type tree []node

func (t tree) eval(row model.FeatureVector) float64 {
	i := 0
	for !t[i].leaf() {
		if row[t[i].feature] <= t[i].threshold {
			i = t[i].left
		} else {
			i = t[i].right
		}
	}
	return t[i].value
}

// Ensemble evaluates a set of regression trees. Forests average the trees;
// boosted ensembles add learning-rate scaled tree outputs to a base score.
type Ensemble struct {
	trees        []tree
	boosted      bool
	baseScore    float64
	learningRate float64
	bounds       bounds
}

// Predict implements ScoreModel.
func (e *Ensemble) Predict(rows []model.FeatureVector) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		var sum float64
		for _, t := range e.trees {
			sum += t.eval(row)
		}
		var v float64
		if e.boosted {
			v = e.baseScore + e.learningRate*sum
		} else {
			v = sum / float64(len(e.trees))
		}
		out[i] = e.bounds.clamp(v)
	}
	return out
}
