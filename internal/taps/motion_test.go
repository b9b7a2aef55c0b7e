package taps

import "testing"

func TestSizeChangedBeyondThreshold(t *testing.T) {
	cases := []struct {
		current, previous int
		threshold         float64
		want               bool
	}{
		{100, 100, 0.08, false},
		{110, 100, 0.08, true},  // +10% exceeds 8%
		{105, 100, 0.08, false}, // +5% under 8%
		{90, 100, 0.08, true},   // -10% magnitude exceeds 8%
	}
	for _, c := range cases {
		if got := sizeChangedBeyond(c.current, c.previous, c.threshold); got != c.want {
			t.Errorf("sizeChangedBeyond(%d, %d, %v) = %v, want %v", c.current, c.previous, c.threshold, got, c.want)
		}
	}
}

func TestSizeChangedBeyondZeroPrevious(t *testing.T) {
	if sizeChangedBeyond(100, 0, 0.08) {
		t.Error("a zero previous size must never report a change")
	}
}
