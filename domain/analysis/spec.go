// Package analysis defines the immutable configuration records that drive a
// decoding run: what to predict, with which model family, how to score it,
// and which trial subsets and time windows matter downstream.
package analysis

import (
	"fmt"
	"math"

	"godecode/domain/core"
	"godecode/domain/trial"
)

// ModelKind is the closed set of target types. The estimator, the scoring
// function and the error semantics all branch exhaustively on this tag.
type ModelKind int

const (
	// KindCategorical targets are discrete class labels scored by AUC.
	KindCategorical ModelKind = iota
	// KindContinuous targets are scalar values scored by rank correlation.
	KindContinuous
	// KindCircular targets are angles in radians, scored by wrapped error.
	KindCircular
)

func (k ModelKind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindContinuous:
		return "continuous"
	case KindCircular:
		return "circular"
	default:
		return fmt.Sprintf("ModelKind(%d)", int(k))
	}
}

// Query selects the trials an analysis is allowed to see. A nil Query keeps
// every trial. Trials whose target label is NaN are dropped afterwards
// regardless of the query.
type Query func(t *trial.Table, row int) bool

// Spec is one named analysis configuration. Created once at setup, never
// mutated afterwards.
type Spec struct {
	Name   core.AnalysisName
	Target core.FactorName
	Kind   ModelKind
	Query  Query
	Chance float64
	Folds  int

	// UnionAbsent marks a target-presence analysis: when subscoring by a
	// factor, trials without a target (for which the factor is undefined)
	// are unioned into every factor-level subset so that hit/false-alarm
	// style scores stay computable.
	UnionAbsent bool
	// PresenceColumn names the binary column used by UnionAbsent and by the
	// present-trials-only regression analyses.
	PresenceColumn core.FactorName

	// KeepModels retains the fitted per-time-bin estimators in the persisted
	// artifact. KeepPredictions retains the single-trial prediction tensor.
	// Both default to false to bound artifact size; analyses whose derived
	// pipelines need single-trial introspection set KeepPredictions.
	KeepModels      bool
	KeepPredictions bool
}

// Validate checks the spec for structural problems at registration time.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", core.ErrInvalidSpec)
	}
	if s.Target == "" {
		return fmt.Errorf("%w: %s has no target column", core.ErrInvalidSpec, s.Name)
	}
	if s.Folds < 2 {
		return fmt.Errorf("%w: %s requires at least 2 folds, got %d", core.ErrInvalidSpec, s.Name, s.Folds)
	}
	if s.Kind != KindCategorical && s.Kind != KindContinuous && s.Kind != KindCircular {
		return fmt.Errorf("%w: %s has unknown model kind %d", core.ErrInvalidSpec, s.Name, int(s.Kind))
	}
	return nil
}

// SelectTrials applies the inclusion query and drops trials whose target
// label is NaN. It returns the selected row indices and the label vector
// aligned with them. An empty selection is a valid outcome, not an error.
func (s *Spec) SelectTrials(t *trial.Table) (indices []int, labels []float64) {
	target, ok := t.Column(s.Target)
	if !ok {
		return nil, nil
	}
	for row := 0; row < t.Rows; row++ {
		if s.Query != nil && !s.Query(t, row) {
			continue
		}
		if math.IsNaN(target[row]) {
			continue
		}
		indices = append(indices, row)
		labels = append(labels, target[row])
	}
	return indices, labels
}

// MinSubsetTrials is the smallest factor-level subset that still yields a
// defined score; smaller levels produce NaN rather than an error.
const MinSubsetTrials = 5

// Factor is a named discrete partition of trials used for subscoring and
// single-trial regression (e.g. 4 visibility ratings, 3 contrast levels).
type Factor struct {
	Name   string
	Column core.FactorName
	Levels []float64
}

// TOI is a closed time-of-interest window [Start, End] in seconds.
type TOI struct {
	Start float64
	End   float64
}

// Indices returns the positions of time bins falling inside the window.
func (w TOI) Indices(times []float64) []int {
	var idx []int
	for i, t := range times {
		if t >= w.Start && t <= w.End {
			idx = append(idx, i)
		}
	}
	return idx
}

func (w TOI) String() string { return fmt.Sprintf("[%g, %g]", w.Start, w.End) }
