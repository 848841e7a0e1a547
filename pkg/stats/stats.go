// Package stats provides small statistical utility functions shared by the
// process detector and other aggregate reporting.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, decimals int) float64 {
	return floats.Round(v, decimals)
}

// MeanRoundedTo returns the arithmetic mean of values rounded to the given
// number of decimal places. Returns 0 for an empty slice.
func MeanRoundedTo(values []float64, decimals int) float64 {
	if len(values) == 0 {
		return 0
	}
	return RoundTo(stat.Mean(values, nil), decimals)
}
