package anomaly

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if Mean(nil) != 0 {
		t.Errorf("Mean(nil) = %f, want 0", Mean(nil))
	}
	if got := Mean([]float64{2, 4, 6}); got != 4 {
		t.Errorf("Mean = %f, want 4", got)
	}
}

func TestMedian(t *testing.T) {
	if Median(nil) != 0 {
		t.Errorf("Median(nil) = %f, want 0", Median(nil))
	}
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd Median = %f, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even Median = %f, want 2.5", got)
	}
	// Input must not be reordered.
	vals := []float64{3, 1, 2}
	Median(vals)
	if vals[0] != 3 || vals[1] != 1 || vals[2] != 2 {
		t.Errorf("Median mutated input: %v", vals)
	}
}

func TestSampleStdev(t *testing.T) {
	if SampleStdev(nil, 0) != 0 {
		t.Error("SampleStdev(nil) != 0")
	}
	if SampleStdev([]float64{5}, 5) != 0 {
		t.Error("SampleStdev of one value != 0")
	}
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := Mean(vals)
	got := SampleStdev(vals, m)
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("SampleStdev = %f, want %f", got, want)
	}
}

func TestScoreGreater_TotalOrder(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)

	if !scoreGreater(nan, 1) {
		t.Error("NaN should order above finite values")
	}
	if scoreGreater(1, nan) {
		t.Error("finite should not order above NaN")
	}
	if scoreGreater(nan, nan) {
		t.Error("NaN vs NaN must not be greater (ties stay stable)")
	}
	if !scoreGreater(inf, 1) {
		t.Error("+Inf should order above finite values")
	}
	if scoreGreater(0.5, 0.5) {
		t.Error("equal values must not be greater")
	}
}
