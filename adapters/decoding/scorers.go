// Package decoding implements the temporal generalization engine: per-time-bin
// estimators evaluated at every other time bin under cross-validation, plus
// the subscore and diagonal-alignment machinery that reuses the stored
// single-trial predictions without retraining.
package decoding

import (
	"math"

	"godecode/adapters/stats"
	"godecode/domain/analysis"
)

// Scorer compares true labels to single-trial predictions at one
// (train, test) cell and returns a scalar score.
type Scorer func(yTrue []float64, yPred [][]float64) float64

// ScorerFor returns the scoring function for a model kind. The mapping is
// exhaustive on the closed kind set:
//   - categorical: ROC AUC of the positive-class probability, in [0, 1]
//   - continuous: Spearman rank correlation, in [-1, 1]
//   - circular: mean wrapped absolute angle error, in [0, pi]
func ScorerFor(kind analysis.ModelKind) Scorer {
	switch kind {
	case analysis.KindCategorical:
		return AUC
	case analysis.KindContinuous:
		return SpearmanScore
	case analysis.KindCircular:
		return AngleErrorScore
	default:
		panic("unknown model kind")
	}
}

// Chance returns the expected score under the null hypothesis for a kind.
func Chance(kind analysis.ModelKind) float64 {
	switch kind {
	case analysis.KindCategorical:
		return 0.5
	case analysis.KindContinuous:
		return 0
	case analysis.KindCircular:
		return math.Pi / 2
	default:
		panic("unknown model kind")
	}
}

// AUC computes the rank-based area under the ROC curve, treating the higher
// of the two label values as the positive class. Ties in the predicted
// scores receive averaged ranks. A subset with a single class yields NaN.
func AUC(yTrue []float64, yPred [][]float64) float64 {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 {
		return math.NaN()
	}
	pos := math.Inf(-1)
	for _, v := range yTrue {
		if v > pos {
			pos = v
		}
	}
	scores := make([]float64, len(yPred))
	for i, p := range yPred {
		scores[i] = p[0]
	}
	ranks := stats.Ranks(scores)

	rankSum := 0.0
	nPos := 0
	for i, v := range yTrue {
		if v == pos {
			rankSum += ranks[i]
			nPos++
		}
	}
	nNeg := len(yTrue) - nPos
	if nPos == 0 || nNeg == 0 {
		return math.NaN()
	}
	return (rankSum - float64(nPos*(nPos+1))/2) / float64(nPos*nNeg)
}

// SpearmanScore is the rank correlation between true and predicted values.
func SpearmanScore(yTrue []float64, yPred [][]float64) float64 {
	preds := make([]float64, len(yPred))
	for i, p := range yPred {
		preds[i] = p[0]
	}
	return stats.Spearman(yTrue, preds)
}

// AngleErrorScore is the mean wrapped absolute error between predicted and
// true angles, in [0, pi]; chance is pi/2 and lower is better.
func AngleErrorScore(yTrue []float64, yPred [][]float64) float64 {
	if len(yTrue) != len(yPred) || len(yTrue) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i, p := range yPred {
		sum += AngleError(p[0], yTrue[i])
	}
	return sum / float64(len(yTrue))
}

// AngleError is the wrapped absolute difference between two angles,
// symmetric modulo 2*pi: identical angles give 0, opposite angles give pi.
func AngleError(pred, truth float64) float64 {
	d := math.Mod(pred-truth, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return math.Pi - math.Abs(math.Pi-d)
}
