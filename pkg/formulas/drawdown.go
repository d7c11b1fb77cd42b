package formulas

// DrawdownPct calculates the percentage change of the current equity relative
// to the recorded peak.
//
// The result is negative while in drawdown (e.g. -12.5 means the account is
// 12.5% below its peak) and zero at or above the peak. A non-positive peak
// yields zero, since there is no meaningful reference value.
func DrawdownPct(current, peak float64) float64 {
	if peak <= 0 {
		return 0
	}

	dd := (current - peak) / peak * 100
	if dd > 0 {
		return 0
	}
	return dd
}

// ChangePct calculates the percentage change of a value against a baseline.
// A non-positive baseline yields zero.
func ChangePct(current, baseline float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (current - baseline) / baseline * 100
}
