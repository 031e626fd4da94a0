// Package score turns daily sleep records into a weekly score and suggestion.
package score

import "github.com/verte-zerg/tuisleep/internal/model"

// FeatureNames lists the model inputs in positional order.
var FeatureNames = [...]string{
	"total_sleep_hrs",
	"light_sleep_hrs",
	"deep_sleep_hrs",
	"rem_sleep_hrs",
	"awake_hrs",
	"latency_mins",
	"interruptions",
	"consistency_score",
}

// Features encodes one record in the order the score model was trained on.
func Features(rec model.DailyRecord) model.FeatureVector {
	return model.FeatureVector{
		rec.TotalSleepHrs,
		rec.LightSleepHrs,
		rec.DeepSleepHrs,
		rec.RemSleepHrs,
		rec.AwakeHrs,
		rec.LatencyMins,
		float64(rec.Interruptions),
		rec.ConsistencyScore,
	}
}

// FeatureMatrix encodes every record of the dataset, preserving row order.
func FeatureMatrix(ds model.WeeklyDataset) []model.FeatureVector {
	out := make([]model.FeatureVector, len(ds.Records))
	for i, rec := range ds.Records {
		out[i] = Features(rec)
	}
	return out
}
