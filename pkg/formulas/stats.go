package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// WinRate calculates the fraction of profitable outcomes in a P&L series.
//
// Each element is the realized P&L of one closed trade; a trade counts as a
// win when its P&L is strictly positive. Returns a value in [0, 1].
func WinRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	outcomes := make([]float64, len(pnls))
	for i, pnl := range pnls {
		if pnl > 0 {
			outcomes[i] = 1
		}
	}

	return stat.Mean(outcomes, nil)
}

// ConsecutiveLosses counts the losing streak at the head of a P&L series.
//
// The series must be ordered most recent first; counting stops at the first
// trade with P&L >= 0.
func ConsecutiveLosses(pnls []float64) int {
	streak := 0
	for _, pnl := range pnls {
		if pnl >= 0 {
			break
		}
		streak++
	}
	return streak
}
