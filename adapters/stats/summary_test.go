package stats

import (
	"math"
	"regexp"
	"testing"
)

var quickStatsFormat = regexp.MustCompile(`^\[-?\d+\.\d{3}\+/-\d+\.\d{3}, p=\d\.\d{4}\]$`)

// TestQuickStats_Format verifies the exact bracket formatting contract
func TestQuickStats_Format(t *testing.T) {
	got := QuickStats([]float64{0.6, 0.62, 0.58, 0.61, 0.63, 0.59}, 0.5)
	if !quickStatsFormat.MatchString(got) {
		t.Errorf("QuickStats output %q does not match the expected format", got)
	}
}

// TestQuickStats_SkipsNaN verifies NaN samples are excluded from the mean
// and the signed-rank test; the zero-spread sample keeps the standard error
// at zero on both sides
func TestQuickStats_SkipsNaN(t *testing.T) {
	clean := QuickStats([]float64{0.7, 0.7, 0.7, 0.7}, 0.5)
	withNaN := QuickStats([]float64{0.7, math.NaN(), 0.7, 0.7, math.NaN(), 0.7}, 0.5)
	if clean != withNaN {
		t.Errorf("NaN entries changed the summary: %q vs %q", clean, withNaN)
	}
}

// TestSEM_DenominatorIncludesNaN verifies the standard error divides by the
// full sample size: a NaN entry widens the denominator without contributing
// spread
func TestSEM_DenominatorIncludesNaN(t *testing.T) {
	finite := []float64{0.4, 0.6, 0.5, 0.7}
	withNaN := []float64{0.4, 0.6, math.NaN(), 0.5, 0.7}

	want := SEM(finite) * math.Sqrt(4.0/5.0)
	got := SEM(withNaN)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected SEM %g with a 5-sample denominator, got %g", want, got)
	}
	if got >= SEM(finite) {
		t.Errorf("A NaN entry must shrink the standard error, got %g >= %g", got, SEM(finite))
	}
}

// TestWilcoxonSignedRank_ConsistentPositive verifies a consistent positive
// shift is significant
func TestWilcoxonSignedRank_ConsistentPositive(t *testing.T) {
	diffs := []float64{0.1, 0.12, 0.09, 0.11, 0.13, 0.1, 0.08, 0.12, 0.1, 0.11, 0.09, 0.12}
	p := WilcoxonSignedRank(diffs)
	if p >= 0.05 {
		t.Errorf("Expected p<0.05 for a consistent positive shift, got %g", p)
	}
}

// TestWilcoxonSignedRank_Symmetric verifies a sign-symmetric sample is not
// significant
func TestWilcoxonSignedRank_Symmetric(t *testing.T) {
	diffs := []float64{-1, 1, -2, 2, -3, 3}
	if p := WilcoxonSignedRank(diffs); p != 1 {
		t.Errorf("Expected p=1 for a symmetric sample, got %g", p)
	}
}

// TestWilcoxonSignedRank_TooFewSamples verifies fewer than three nonzero
// differences yields p=1
func TestWilcoxonSignedRank_TooFewSamples(t *testing.T) {
	if p := WilcoxonSignedRank([]float64{0.5, -0.3}); p != 1 {
		t.Errorf("Expected p=1 for 2 samples, got %g", p)
	}
	if p := WilcoxonSignedRank([]float64{0, 0, 0, 0.5, -0.3}); p != 1 {
		t.Errorf("Expected zero differences to be discarded, got p=%g", p)
	}
}

// TestNaNMean verifies the NaN-skipping mean and its all-NaN edge case
func TestNaNMean(t *testing.T) {
	if m := NaNMean([]float64{1, math.NaN(), 3}); m != 2 {
		t.Errorf("Expected 2, got %g", m)
	}
	if m := NaNMean([]float64{math.NaN(), math.NaN()}); !math.IsNaN(m) {
		t.Errorf("Expected NaN for an all-NaN input, got %g", m)
	}
}
