// Package decoding defines the artifacts produced by the temporal
// generalization engine and the keys under which they are persisted.
package decoding

import (
	"math"

	"godecode/domain/analysis"
	"godecode/domain/core"
)

// ArtifactKind names a persisted artifact family.
type ArtifactKind string

const (
	// KindDecod is the full GAT artifact: estimators, prediction tensor,
	// score matrix, selection and labels.
	KindDecod ArtifactKind = "decod"
	// KindScore is the minimal score bundle kept for every analysis.
	KindScore ArtifactKind = "score"
)

// Key addresses one artifact in the store. Derived score variants reuse
// KindScore with a suffixed analysis name (e.g. "target_present-vis").
type Key struct {
	Kind     ArtifactKind      `json:"kind"`
	Subject  core.SubjectID    `json:"subject"`
	Analysis core.AnalysisName `json:"analysis"`
}

// Derived returns the score key of a derived variant of an analysis,
// e.g. Derived("target_present", "-vis"). Group-level derivations leave
// Subject empty.
func Derived(analysis core.AnalysisName, suffix string) Key {
	return Key{Kind: KindScore, Analysis: core.AnalysisName(string(analysis) + suffix)}
}

// PredictionTensor stores one prediction per (train bin, test bin, trial,
// output dim). Dim is 1 for scalar targets and 2 for circular targets
// (angle, radius).
type PredictionTensor struct {
	Preds core.Tensor `json:"preds"` // [train][test][trial][dim]
	Dim   int         `json:"dim"`
}

// NewPredictionTensor allocates a NaN-filled tensor.
func NewPredictionTensor(nTimes, nTrials, dim int) *PredictionTensor {
	p := &PredictionTensor{Dim: dim, Preds: make(core.Tensor, nTimes)}
	for tr := range p.Preds {
		p.Preds[tr] = make([][][]float64, nTimes)
		for te := range p.Preds[tr] {
			p.Preds[tr][te] = make([][]float64, nTrials)
			for i := range p.Preds[tr][te] {
				row := make([]float64, dim)
				for d := range row {
					row[d] = math.NaN()
				}
				p.Preds[tr][te][i] = row
			}
		}
	}
	return p
}

// NumTimes returns the train/test axis length.
func (p *PredictionTensor) NumTimes() int { return len(p.Preds) }

// NumTrials returns the trial axis length.
func (p *PredictionTensor) NumTrials() int {
	if len(p.Preds) == 0 || len(p.Preds[0]) == 0 {
		return 0
	}
	return len(p.Preds[0][0])
}

// At returns the prediction vector for one cell and trial.
func (p *PredictionTensor) At(train, test, trialIdx int) []float64 {
	return p.Preds[train][test][trialIdx]
}

// EstimatorState is the serialized form of one fitted per-time-bin model:
// standardization parameters and linear weights per output dimension.
type EstimatorState struct {
	Kind      string      `json:"kind"`
	Means     []float64   `json:"means"`
	Scales    []float64   `json:"scales"`
	Weights   [][]float64 `json:"weights"` // [dim][feature]
	Intercept []float64   `json:"intercept"`
}

// Artifact is the product of one generalization run for one (subject,
// analysis) pair. Downstream engines consume it read-only; they never touch
// the raw trials again.
type Artifact struct {
	Subject  core.SubjectID     `json:"subject"`
	Analysis core.AnalysisName  `json:"analysis"`
	Kind     analysis.ModelKind `json:"kind"`
	Chance   float64            `json:"chance"`
	Times    []float64          `json:"times"`

	// Selected holds the original trial indices the analysis kept; Labels is
	// aligned with Selected.
	Selected []int     `json:"selected"`
	Labels   []float64 `json:"labels"`

	// Estimators holds one fitted model per training time bin; nil when the
	// spec chose not to retain them.
	Estimators []EstimatorState `json:"estimators,omitempty"`
	// Predictions is the single-trial prediction tensor; nil when pruned.
	Predictions *PredictionTensor `json:"predictions,omitempty"`

	Scores core.Matrix `json:"scores"` // [train][test]
}

// Bundle returns the minimal (scores, times) pair persisted for plotting and
// statistics even when the full artifact is pruned.
func (a *Artifact) Bundle() *ScoreBundle {
	return &ScoreBundle{Scores: a.Scores, Times: a.Times}
}

// Prune drops the memory-heavy fields according to the retention flags.
// Score semantics are unaffected.
func (a *Artifact) Prune(keepModels, keepPredictions bool) {
	if !keepModels {
		a.Estimators = nil
	}
	if !keepPredictions {
		a.Predictions = nil
	}
}

// ScoreBundle is the (score matrix, time axis) pair.
type ScoreBundle struct {
	Scores core.Matrix `json:"scores"`
	Times  []float64   `json:"times"`
}

// FactorScores is a derived artifact: per-subject score matrices for each
// level of a factor, with the cluster p-values per level.
type FactorScores struct {
	Levels []float64   `json:"levels"`
	Scores core.Tensor `json:"scores"` // [subject][level][train][test]
	PVals  core.Cube   `json:"pvals"`  // [level][train][test]
	Times  []float64   `json:"times"`
}

// ContinuousScores is the "-continuous" derived artifact: per-time subscores
// at each factor level plus the per-time regression coefficient, per factor.
type ContinuousScores struct {
	Factors map[string]*FactorTimecourse `json:"factors"`
	Times   []float64                    `json:"times"`
}

// FactorTimecourse holds one factor's subscore and regression timecourses.
type FactorTimecourse struct {
	Levels []float64   `json:"levels"`
	Scores core.Cube   `json:"scores"` // [subject][time][level]
	R      core.Matrix `json:"r"`      // [subject][time]
}

// TOIScores is the "-toi" derived artifact: the same quantities aggregated
// inside each time-of-interest window.
type TOIScores struct {
	Factors map[string]*FactorTOI `json:"factors"`
}

// FactorTOI holds one factor's per-window subscores and regressions.
type FactorTOI struct {
	Levels []float64   `json:"levels"`
	Scores core.Cube   `json:"scores"` // [subject][toi][level]
	R      core.Matrix `json:"r"`      // [subject][toi]
}

// CorrelationScores is the "-Rvis" derived artifact: the train x test map of
// rank correlation between single-trial predictions and a factor.
type CorrelationScores struct {
	R     core.Cube   `json:"r"` // [subject][train][test]
	PVals core.Matrix `json:"pvals"`
	Times []float64   `json:"times"`
}

// DurationScores is the "-duration-toi" derived artifact: diagonal-aligned,
// TOI-averaged generalization profiles per factor level.
type DurationScores struct {
	Scores core.Tensor `json:"scores"` // [subject][level][toi][offset]
	PVals  core.Cube   `json:"pvals"`  // [level][toi][offset]
	Times  []float64   `json:"times"`
}
