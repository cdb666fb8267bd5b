package extract

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{61.4567, 61.46},
		{52.994, 52.99},
		{48, 48},
		{0, 0},
		// half-way cases round away from zero
		{1.005, 1.01},
		{2.675, 2.68},
		{0.125, 0.13},
		{55.005, 55.01},
		{-1.005, -1.01},
		// just below half-way
		{1.0049, 1},
		{2.6749, 2.67},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
