package decoding

import (
	"math"
	"testing"

	"godecode/domain/analysis"
)

func preds(vals ...float64) [][]float64 {
	out := make([][]float64, len(vals))
	for i, v := range vals {
		out[i] = []float64{v}
	}
	return out
}

// TestAUC_Separation verifies the rank AUC on perfectly separated and
// perfectly inverted scores
func TestAUC_Separation(t *testing.T) {
	yTrue := []float64{0, 0, 0, 1, 1, 1}

	if auc := AUC(yTrue, preds(0.1, 0.2, 0.3, 0.7, 0.8, 0.9)); auc != 1 {
		t.Errorf("Expected AUC=1 for perfect separation, got %g", auc)
	}
	if auc := AUC(yTrue, preds(0.9, 0.8, 0.7, 0.3, 0.2, 0.1)); auc != 0 {
		t.Errorf("Expected AUC=0 for inverted scores, got %g", auc)
	}
	if auc := AUC(yTrue, preds(0.5, 0.5, 0.5, 0.5, 0.5, 0.5)); auc != 0.5 {
		t.Errorf("Expected AUC=0.5 for constant scores, got %g", auc)
	}
}

// TestAUC_SingleClass verifies a single-class subset yields NaN, not a score
func TestAUC_SingleClass(t *testing.T) {
	if auc := AUC([]float64{1, 1, 1}, preds(0.1, 0.5, 0.9)); !math.IsNaN(auc) {
		t.Errorf("Expected NaN for a single-class subset, got %g", auc)
	}
}

// TestAngleError_Wrapping verifies the wrapped distance against known angles
func TestAngleError_Wrapping(t *testing.T) {
	tests := []struct {
		pred, truth, want float64
	}{
		{0, 0, 0},
		{math.Pi, 0, math.Pi},
		{math.Pi / 2, 0, math.Pi / 2},
		{3 * math.Pi / 2, 0, math.Pi / 2},
		{2 * math.Pi, 0, 0},
		{-math.Pi / 4, math.Pi / 4, math.Pi / 2},
	}
	for _, tc := range tests {
		got := AngleError(tc.pred, tc.truth)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("AngleError(%g, %g): expected %g, got %g", tc.pred, tc.truth, tc.want, got)
		}
	}
}

// TestAngleError_Symmetry verifies the error is symmetric in its arguments
// and never leaves [0, pi]
func TestAngleError_Symmetry(t *testing.T) {
	angles := []float64{0, 0.3, 1.1, math.Pi, 4.2, 6.1}
	for _, a := range angles {
		for _, b := range angles {
			ab, ba := AngleError(a, b), AngleError(b, a)
			if math.Abs(ab-ba) > 1e-12 {
				t.Errorf("AngleError not symmetric: (%g,%g)=%g vs %g", a, b, ab, ba)
			}
			if ab < 0 || ab > math.Pi {
				t.Errorf("AngleError(%g,%g)=%g out of [0,pi]", a, b, ab)
			}
		}
	}
}

// TestAngleErrorScore_Range verifies the mean wrapped error stays in [0, pi]
func TestAngleErrorScore_Range(t *testing.T) {
	yTrue := []float64{0, 1, 2, 3, 4, 5}
	score := AngleErrorScore(yTrue, preds(5, 4, 3, 2, 1, 0))
	if score < 0 || score > math.Pi {
		t.Errorf("Score %g out of [0,pi]", score)
	}
	if perfect := AngleErrorScore(yTrue, preds(0, 1, 2, 3, 4, 5)); perfect != 0 {
		t.Errorf("Expected 0 error for perfect predictions, got %g", perfect)
	}
}

// TestChance verifies the null-hypothesis score per model kind
func TestChance(t *testing.T) {
	if c := Chance(analysis.KindCategorical); c != 0.5 {
		t.Errorf("Expected categorical chance 0.5, got %g", c)
	}
	if c := Chance(analysis.KindContinuous); c != 0 {
		t.Errorf("Expected continuous chance 0, got %g", c)
	}
	if c := Chance(analysis.KindCircular); c != math.Pi/2 {
		t.Errorf("Expected circular chance pi/2, got %g", c)
	}
}
