package testutil

import (
	"math"
	"testing"
)

func TestClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b float64
		rel  float64
		want bool
	}{
		{"equal", 1, 1, 0, true},
		{"within tolerance", 100, 100.5, 0.01, true},
		{"outside tolerance", 100, 102, 0.01, false},
		{"tiny values", 1e-18, 1.0000001e-18, 1e-6, true},
		{"both NaN", math.NaN(), math.NaN(), 0, true},
		{"one NaN", math.NaN(), 1, 1, false},
		{"same infinity", math.Inf(1), math.Inf(1), 0, true},
		{"opposite infinity", math.Inf(1), math.Inf(-1), 1, false},
		{"zero and tiny", 0, 1e-30, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Close(tt.a, tt.b, tt.rel); got != tt.want {
				t.Errorf("Close(%g, %g, %g) = %v, want %v", tt.a, tt.b, tt.rel, got, tt.want)
			}
		})
	}
}

func TestAssertHelpersPass(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
	AssertFloat(t, 2, 2*(1+1e-12), 1e-9)
	AssertFloat(t, math.NaN(), math.NaN(), 0)
	AssertFloats(t, []float64{1, 2, 3}, []float64{1, 2, 3}, 0)
}
