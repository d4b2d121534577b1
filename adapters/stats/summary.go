package stats

import (
	"fmt"
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuickStats formats a sample against a chance level as
// "[mean+/-sem, p=pvalue]" with 3 decimals for mean/sem and 4 for p. The
// p-value is a two-sided Wilcoxon signed-rank test of the sample against
// chance. NaN entries are skipped by the mean and the test, but count toward
// the standard error denominator.
func QuickStats(x []float64, chance float64) string {
	finite := dropNaN(x)
	mean, _ := mfstats.Mean(finite)
	sem := SEM(x)
	diffs := make([]float64, len(finite))
	for i, v := range finite {
		diffs[i] = v - chance
	}
	p := WilcoxonSignedRank(diffs)
	return fmt.Sprintf("[%.3f+/-%.3f, p=%.4f]", mean, sem, p)
}

// Mean and SEM return the NaN-skipping summary pair used in report tables.
func Mean(x []float64) float64 {
	m, _ := mfstats.Mean(dropNaN(x))
	return m
}

// SEM returns the standard error: the NaN-skipping population standard
// deviation over the square root of the full sample size, NaN entries
// counted in the denominator.
func SEM(x []float64) float64 {
	sd, _ := mfstats.StandardDeviationPopulation(dropNaN(x))
	return sd / math.Sqrt(float64(len(x)))
}

// WilcoxonSignedRank tests whether the diffs are symmetric around zero,
// two-sided, using the normal approximation with continuity correction.
// Zero differences are discarded; ties get averaged ranks. Fewer than three
// nonzero differences yield p = 1.
func WilcoxonSignedRank(diffs []float64) float64 {
	var nonzero []float64
	for _, d := range diffs {
		if d != 0 && !math.IsNaN(d) {
			nonzero = append(nonzero, d)
		}
	}
	n := len(nonzero)
	if n < 3 {
		return 1
	}

	abs := make([]float64, n)
	for i, d := range nonzero {
		abs[i] = math.Abs(d)
	}
	ranks := Ranks(abs)

	wPlus := 0.0
	for i, d := range nonzero {
		if d > 0 {
			wPlus += ranks[i]
		}
	}

	mean := float64(n*(n+1)) / 4
	sigma := math.Sqrt(float64(n*(n+1)*(2*n+1)) / 24)
	if sigma == 0 {
		return 1
	}
	z := (wPlus - mean)
	// Continuity correction toward the mean.
	if z > 0.5 {
		z -= 0.5
	} else if z < -0.5 {
		z += 0.5
	} else {
		z = 0
	}
	z /= sigma

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * norm.Survival(math.Abs(z))
	if p > 1 {
		p = 1
	}
	return p
}

// NaNMean averages the finite entries; all-NaN input yields NaN.
func NaNMean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
