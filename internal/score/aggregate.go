package score

import (
	"errors"
	"math"
)

// ErrNoPredictions is returned when there is nothing to aggregate.
var ErrNoPredictions = errors.New("no predictions to aggregate")

// Aggregate returns the mean of the daily predictions truncated toward zero.
func Aggregate(predictions []float64) (int, error) {
	if len(predictions) == 0 {
		return 0, ErrNoPredictions
	}
	var sum float64
	for _, p := range predictions {
		sum += p
	}
	mean := sum / float64(len(predictions))
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, errors.New("prediction mean is not finite")
	}
	return int(math.Trunc(mean)), nil
}
