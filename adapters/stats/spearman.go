// Package stats implements the nonparametric statistics the decoding
// pipeline relies on: tie-aware rank correlation repeated over time points,
// cluster-based permutation testing against chance, and signed-rank summary
// formatting.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"godecode/domain/core"
)

// Ranks converts values to ranks (1-based), handling ties by averaging.
func Ranks(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return []float64{}
	}

	type pair struct {
		value float64
		index int
	}
	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{value: v, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}
		i = j
	}
	return ranks
}

// Spearman computes the rank correlation coefficient as the Pearson
// correlation of the tie-averaged ranks. Fewer than 3 samples, or a constant
// input, yields NaN.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 3 {
		return math.NaN()
	}
	rho := stat.Correlation(Ranks(x), Ranks(y), nil)
	// Clamp floating-point overshoot.
	if rho > 1 {
		rho = 1
	} else if rho < -1 {
		rho = -1
	}
	return rho
}

// RepeatedSpearman correlates a per-trial covariate with one prediction
// series per time point. preds is [trial][time]; the result has one
// coefficient per time point. A trial/covariate length mismatch is a caller
// error, surfaced immediately.
func RepeatedSpearman(preds [][]float64, x []float64) ([]float64, error) {
	if len(preds) != len(x) {
		return nil, core.NewDimensionMismatchError("covariate", len(x), len(preds))
	}
	if len(preds) == 0 {
		return nil, nil
	}
	nTimes := len(preds[0])
	out := make([]float64, nTimes)
	col := make([]float64, len(preds))
	for t := 0; t < nTimes; t++ {
		for i := range preds {
			col[i] = preds[i][t]
		}
		out[t] = Spearman(col, x)
	}
	return out, nil
}

// RepeatedSpearmanIndependent computes RepeatedSpearman separately within
// each level of a second covariate and averages the coefficients across
// levels, controlling for that covariate. Levels with five or fewer trials
// are skipped, not averaged in; if every level is skipped the result is NaN.
func RepeatedSpearmanIndependent(preds [][]float64, x, cov []float64, covLevels []float64) ([]float64, error) {
	if len(preds) != len(x) {
		return nil, core.NewDimensionMismatchError("covariate", len(x), len(preds))
	}
	if len(cov) != len(x) {
		return nil, core.NewDimensionMismatchError("partial covariate", len(cov), len(x))
	}
	if len(preds) == 0 {
		return nil, nil
	}
	nTimes := len(preds[0])

	perLevel := make([][]float64, 0, len(covLevels))
	for _, level := range covLevels {
		var sel []int
		for i, v := range cov {
			if v == level {
				sel = append(sel, i)
			}
		}
		if len(sel) <= 5 {
			continue
		}
		subPreds := make([][]float64, len(sel))
		subX := make([]float64, len(sel))
		for i, idx := range sel {
			subPreds[i] = preds[idx]
			subX[i] = x[idx]
		}
		r, err := RepeatedSpearman(subPreds, subX)
		if err != nil {
			return nil, err
		}
		perLevel = append(perLevel, r)
	}

	out := make([]float64, nTimes)
	for t := range out {
		out[t] = nanMeanAt(perLevel, t)
	}
	return out, nil
}

func nanMeanAt(rows [][]float64, col int) float64 {
	sum, n := 0.0, 0
	for _, row := range rows {
		if col < len(row) && !math.IsNaN(row[col]) {
			sum += row[col]
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
