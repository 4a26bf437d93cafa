// Package stats holds the pure primitives shared by the aggregation engine:
// an O(1) running mean and a keyed upsert over small ordered collections.
package stats

import "math"

// Update folds one new observation into a running (count, mean) pair. The
// mean keeps full float64 precision; rounding happens only when a value is
// written back to storage.
func Update(priorCount int, priorMean, value float64) (int, float64) {
	newCount := priorCount + 1
	if priorCount <= 0 {
		return newCount, value
	}
	return newCount, (priorMean*float64(priorCount) + value) / float64(newCount)
}

// Round2 rounds to two decimal places for storage.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
