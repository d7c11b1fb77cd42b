package formulas

import (
	"testing"
)

func TestWinRate(t *testing.T) {
	tests := []struct {
		name     string
		pnls     []float64
		expected float64
	}{
		{
			name:     "mixed outcomes",
			pnls:     []float64{10, -5, 20, -1},
			expected: 0.5,
		},
		{
			name:     "breakeven is not a win",
			pnls:     []float64{0, 0, 5, -5},
			expected: 0.25,
		},
		{
			name:     "all losses",
			pnls:     []float64{-1, -2, -3},
			expected: 0,
		},
		{
			name:     "empty series",
			pnls:     nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WinRate(tt.pnls); got != tt.expected {
				t.Errorf("WinRate(%v) = %v, want %v", tt.pnls, got, tt.expected)
			}
		})
	}
}

func TestConsecutiveLosses(t *testing.T) {
	tests := []struct {
		name     string
		pnls     []float64
		expected int
	}{
		{
			name:     "streak at head",
			pnls:     []float64{-1, -2, -1, 5, -3},
			expected: 3,
		},
		{
			name:     "win at head",
			pnls:     []float64{5, -1, -2},
			expected: 0,
		},
		{
			name:     "breakeven stops the streak",
			pnls:     []float64{-1, 0, -2},
			expected: 1,
		},
		{
			name:     "all losses",
			pnls:     []float64{-1, -1, -1},
			expected: 3,
		},
		{
			name:     "empty series",
			pnls:     nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConsecutiveLosses(tt.pnls); got != tt.expected {
				t.Errorf("ConsecutiveLosses(%v) = %v, want %v", tt.pnls, got, tt.expected)
			}
		})
	}
}

func TestDrawdownPct(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		peak     float64
		expected float64
	}{
		{name: "in drawdown", current: 8750, peak: 10000, expected: -12.5},
		{name: "at peak", current: 10000, peak: 10000, expected: 0},
		{name: "above peak", current: 11000, peak: 10000, expected: 0},
		{name: "no peak recorded", current: 10000, peak: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DrawdownPct(tt.current, tt.peak); got != tt.expected {
				t.Errorf("DrawdownPct(%v, %v) = %v, want %v", tt.current, tt.peak, got, tt.expected)
			}
		})
	}
}
