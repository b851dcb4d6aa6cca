package domain

import "math"

// Default threshold and the range accepted from the control surface.
// Score itself accepts any non-negative real.
const (
	DefaultThreshold = 2.0
	MinThreshold     = 0.0
	MaxThreshold     = 10.0
)

// Score attaches the derived anomaly fields to every reading:
//
//	anomaly_score = |truth - predictions|
//	anomaly       = anomaly_score > threshold
//
// The inequality is strict — a score exactly equal to the threshold is not
// flagged. Derivation never fails; an empty input yields an empty result.
func Score(readings []NodeReading, threshold float64) []ScoredReading {
	scored := make([]ScoredReading, len(readings))
	for i, r := range readings {
		s := math.Abs(r.Truth - r.Predictions)
		scored[i] = ScoredReading{
			NodeReading:  r,
			AnomalyScore: s,
			Anomaly:      s > threshold,
		}
	}
	return scored
}

// Anomalies returns only the flagged rows of scored, order preserved.
func Anomalies(scored []ScoredReading) []ScoredReading {
	out := make([]ScoredReading, 0, len(scored))
	for _, s := range scored {
		if s.Anomaly {
			out = append(out, s)
		}
	}
	return out
}
