package analysis

import (
	"math"
	"testing"

	"godecode/domain/core"
	"godecode/domain/trial"
)

func sampleTable(t *testing.T) *trial.Table {
	t.Helper()
	tab := trial.NewTable(6)
	cols := map[core.FactorName][]float64{
		"target_present":   {1, 1, 1, 0, 0, 1},
		"target_circAngle": {0.5, 1.5, 2.5, math.NaN(), math.NaN(), 3.5},
	}
	for name, vals := range cols {
		if err := tab.AddColumn(name, vals); err != nil {
			t.Fatalf("AddColumn failed: %v", err)
		}
	}
	return tab
}

// TestSpec_Validate verifies structural validation at registration time
func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"valid", Spec{Name: "a", Target: "t", Kind: KindCategorical, Folds: 5}, false},
		{"no name", Spec{Target: "t", Kind: KindCategorical, Folds: 5}, true},
		{"no target", Spec{Name: "a", Kind: KindCategorical, Folds: 5}, true},
		{"one fold", Spec{Name: "a", Target: "t", Kind: KindCategorical, Folds: 1}, true},
		{"bad kind", Spec{Name: "a", Target: "t", Kind: ModelKind(9), Folds: 5}, true},
	}
	for _, tc := range tests {
		err := tc.spec.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

// TestSpec_SelectTrials verifies NaN targets are dropped after the query
func TestSpec_SelectTrials(t *testing.T) {
	tab := sampleTable(t)
	spec := Spec{Name: "angle", Target: "target_circAngle", Kind: KindCircular, Folds: 5}

	indices, labels := spec.SelectTrials(tab)
	if len(indices) != 4 {
		t.Fatalf("Expected 4 trials with defined angles, got %d", len(indices))
	}
	for i, idx := range indices {
		if math.IsNaN(labels[i]) {
			t.Errorf("Trial %d kept a NaN label", idx)
		}
	}
}

// TestSpec_SelectTrials_Query verifies the inclusion predicate applies before
// the NaN filter
func TestSpec_SelectTrials_Query(t *testing.T) {
	tab := sampleTable(t)
	spec := Spec{
		Name:   "present_angles",
		Target: "target_circAngle",
		Kind:   KindCircular,
		Folds:  5,
		Query: func(tb *trial.Table, row int) bool {
			col, _ := tb.Column("target_present")
			return col[row] == 1 && row < 3
		},
	}

	indices, _ := spec.SelectTrials(tab)
	if len(indices) != 3 {
		t.Fatalf("Expected 3 trials, got %d", len(indices))
	}
}

// TestSpec_SelectTrials_MissingColumn verifies a missing target column yields
// an empty selection
func TestSpec_SelectTrials_MissingColumn(t *testing.T) {
	tab := sampleTable(t)
	spec := Spec{Name: "x", Target: "no_such_column", Kind: KindContinuous, Folds: 5}

	indices, labels := spec.SelectTrials(tab)
	if indices != nil || labels != nil {
		t.Error("Expected an empty selection for a missing target column")
	}
}

// TestTOI_Indices verifies the closed-window bin lookup
func TestTOI_Indices(t *testing.T) {
	times := []float64{-0.1, 0, 0.1, 0.2, 0.3}

	idx := TOI{Start: 0, End: 0.2}.Indices(times)
	if len(idx) != 3 || idx[0] != 1 || idx[2] != 3 {
		t.Errorf("Expected bins [1 2 3], got %v", idx)
	}
	if idx := (TOI{Start: 1, End: 2}).Indices(times); idx != nil {
		t.Errorf("Expected no bins outside the axis, got %v", idx)
	}
}
