package indicator

import (
	"math"
	"testing"
)

func TestNormalizeBounded(t *testing.T) {
	if got := normalizeBounded(50, 0, 100); got != 0.5 {
		t.Errorf("got %f, want 0.5", got)
	}
	if got := normalizeBounded(150, 0, 100); got != 1.0 {
		t.Errorf("clipping failed: got %f", got)
	}
	if got := normalizeBounded(-10, 0, 100); got != 0.0 {
		t.Errorf("clipping failed: got %f", got)
	}
	if got := normalizeBounded(math.NaN(), 0, 100); got != 0.5 {
		t.Errorf("NaN should be neutral, got %f", got)
	}
}

func TestNormalizeRollingUsesOnlyTrailingWindow(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 100}

	// At index 4 the window [1..5] puts 5 at the top regardless of the
	// later spike.
	if got := normalizeRolling(series, 4, 5); got != 1.0 {
		t.Errorf("got %f, want 1.0", got)
	}

	// At index 2 with window 3, value 3 is max of [1,2,3]
	if got := normalizeRolling(series, 2, 3); got != 1.0 {
		t.Errorf("got %f, want 1.0", got)
	}
}

func TestNormalizeRollingDegenerateWindow(t *testing.T) {
	flat := []float64{2, 2, 2, 2}
	if got := normalizeRolling(flat, 3, 4); got != 0.5 {
		t.Errorf("degenerate window should be neutral, got %f", got)
	}

	single := []float64{7}
	if got := normalizeRolling(single, 0, 5); got != 0.5 {
		t.Errorf("single observation should be neutral, got %f", got)
	}
}

func TestNormalizeRollingSkipsNaN(t *testing.T) {
	series := []float64{math.NaN(), math.NaN(), 1, 2, 3}
	if got := normalizeRolling(series, 4, 5); got != 1.0 {
		t.Errorf("got %f, want 1.0", got)
	}
	if got := normalizeRolling(series, 1, 5); got != 0.5 {
		t.Errorf("NaN value should be neutral, got %f", got)
	}
}
