// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the float comparison helpers used by the
// calculator, config and report tests.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFloat checks got against want within relative tolerance rel. Two NaNs
// compare equal.
func AssertFloat(t *testing.T, want, got, rel float64) {
	t.Helper()
	if !Close(want, got, rel) {
		t.Errorf("got %g, want %g (rel tol %g)", got, want, rel)
	}
}

// AssertFloats checks two slices element by element with AssertFloat.
func AssertFloats(t *testing.T, want, got []float64, rel float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !Close(want[i], got[i], rel) {
			t.Errorf("[%d] got %g, want %g (rel tol %g)", i, got[i], want[i], rel)
		}
	}
}

// Close reports whether a and b agree within relative tolerance rel, scaled by
// the larger magnitude. Exact equality (including both infinite with the same
// sign) and two NaNs are close.
func Close(a, b, rel float64) bool {
	if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}
