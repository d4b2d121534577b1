package decoding

import (
	"fmt"
	"math"

	"godecode/domain/analysis"
	"godecode/domain/decoding"
)

// Subscore recomputes the train x test score matrix over a subset of the
// artifact's trials (indices into the artifact's selection) using the stored
// single-trial predictions, without refitting. Subsets smaller than
// analysis.MinSubsetTrials, or categorical subsets with fewer than two
// distinct labels, yield an all-NaN matrix rather than an error.
func Subscore(a *decoding.Artifact, subset []int) [][]float64 {
	nTimes := len(a.Times)
	scores := nanMatrix(nTimes, nTimes)
	if a.Predictions == nil {
		return scores
	}
	if len(subset) < analysis.MinSubsetTrials {
		return scores
	}

	yTrue := make([]float64, len(subset))
	for i, idx := range subset {
		yTrue[i] = a.Labels[idx]
	}
	if a.Kind == analysis.KindCategorical && countDistinct(yTrue) < 2 {
		return scores
	}

	scorer := ScorerFor(a.Kind)
	yPred := make([][]float64, len(subset))
	for tTrain := 0; tTrain < nTimes; tTrain++ {
		for tTest := 0; tTest < nTimes; tTest++ {
			cell := a.Predictions.Preds[tTrain][tTest]
			for i, idx := range subset {
				yPred[i] = cell[idx]
			}
			scores[tTrain][tTest] = scorer(yTrue, yPred)
		}
	}
	return scores
}

// RequirePredictions returns an error when the artifact's prediction tensor
// was pruned before persistence.
func RequirePredictions(a *decoding.Artifact) error {
	if a.Predictions == nil {
		return fmt.Errorf("artifact %s/%s: single-trial predictions were not retained", a.Subject, a.Analysis)
	}
	return nil
}

// DiagonalPredictions returns the train==test predictions reshaped to
// [trial][time][dim].
func DiagonalPredictions(a *decoding.Artifact) [][][]float64 {
	nTimes := len(a.Times)
	nTrials := a.Predictions.NumTrials()
	out := make([][][]float64, nTrials)
	for i := range out {
		out[i] = make([][]float64, nTimes)
		for t := 0; t < nTimes; t++ {
			out[i][t] = a.Predictions.Preds[t][t][i]
		}
	}
	return out
}

// ScalarDiagonal reduces diagonal predictions to [trial][time] using output
// dimension zero (the predicted value or angle).
func ScalarDiagonal(diag [][][]float64) [][]float64 {
	out := make([][]float64, len(diag))
	for i, trialPreds := range diag {
		row := make([]float64, len(trialPreds))
		for t, p := range trialPreds {
			row[t] = p[0]
		}
		out[i] = row
	}
	return out
}

// AverageTOI collapses diagonal predictions across a time-of-interest window
// into one value per trial: the median for scalar targets, and for circular
// targets the angle of the radius-weighted complex median, so low-confidence
// time bins contribute less.
func AverageTOI(diag [][][]float64, times []float64, toi analysis.TOI, kind analysis.ModelKind) []float64 {
	bins := toi.Indices(times)
	out := make([]float64, len(diag))
	for i, trialPreds := range diag {
		if len(bins) == 0 {
			out[i] = math.NaN()
			continue
		}
		if kind == analysis.KindCircular {
			re := make([]float64, len(bins))
			im := make([]float64, len(bins))
			for j, t := range bins {
				angle, radius := trialPreds[t][0], trialPreds[t][1]
				re[j] = math.Cos(angle) * radius
				im[j] = math.Sin(angle) * radius
			}
			out[i] = math.Atan2(median(im), median(re))
		} else {
			vals := make([]float64, len(bins))
			for j, t := range bins {
				vals[j] = trialPreds[t][0]
			}
			out[i] = median(vals)
		}
	}
	return out
}

// SubscoreSeries scores a [trial][time] prediction series against the true
// labels within one trial subset, per time point. The subset rules match
// Subscore: too-small or single-class subsets yield NaN at every time point.
func SubscoreSeries(preds [][]float64, labels []float64, subset []int, kind analysis.ModelKind) []float64 {
	if len(preds) == 0 {
		return nil
	}
	nTimes := len(preds[0])
	out := nanRow(nTimes)
	if len(subset) < analysis.MinSubsetTrials {
		return out
	}
	yTrue := make([]float64, len(subset))
	for i, idx := range subset {
		yTrue[i] = labels[idx]
	}
	if kind == analysis.KindCategorical && countDistinct(yTrue) < 2 {
		return out
	}
	scorer := ScorerFor(kind)
	yPred := make([][]float64, len(subset))
	for t := 0; t < nTimes; t++ {
		for i, idx := range subset {
			yPred[i] = []float64{preds[idx][t]}
		}
		out[t] = scorer(yTrue, yPred)
	}
	return out
}

// PredictionError converts a [trial][time] prediction series into absolute
// single-trial errors against the labels: wrapped distance for circular
// targets, |pred - true| otherwise.
func PredictionError(preds [][]float64, labels []float64, kind analysis.ModelKind) [][]float64 {
	out := make([][]float64, len(preds))
	for i, row := range preds {
		errRow := make([]float64, len(row))
		for t, p := range row {
			if kind == analysis.KindCircular {
				errRow[t] = AngleError(p, labels[i])
			} else {
				errRow[t] = math.Abs(p - labels[i])
			}
		}
		out[i] = errRow
	}
	return out
}

func countDistinct(vals []float64) int {
	seen := make(map[float64]struct{}, 4)
	for _, v := range vals {
		if !math.IsNaN(v) {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func nanMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = nanRow(cols)
	}
	return out
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
