package trial

import (
	"errors"
	"math"
	"testing"

	"godecode/domain/core"
)

// TestNewArray_RejectsRaggedTrials verifies shape validation
func TestNewArray_RejectsRaggedTrials(t *testing.T) {
	times := []float64{0, 0.1}

	_, err := NewArray([][][]float64{
		{{1, 2}, {3, 4}},
		{{1, 2}}, // missing a channel
	}, times)
	if !errors.Is(err, core.ErrRaggedTrials) {
		t.Errorf("Expected ragged trials error, got %v", err)
	}

	_, err = NewArray([][][]float64{
		{{1, 2}, {3, 4}},
		{{1, 2}, {3, 4, 5}}, // extra time bin
	}, times)
	if !errors.Is(err, core.ErrRaggedTrials) {
		t.Errorf("Expected ragged trials error for bin mismatch, got %v", err)
	}
}

// TestArray_FeatureVectorAndSelect verifies feature extraction stays aligned
// after trial selection
func TestArray_FeatureVectorAndSelect(t *testing.T) {
	arr, err := NewArray([][][]float64{
		{{1, 2}, {3, 4}},
		{{5, 6}, {7, 8}},
		{{9, 10}, {11, 12}},
	}, []float64{0, 0.1})
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}

	vec := arr.FeatureVector(1, 1)
	if vec[0] != 6 || vec[1] != 8 {
		t.Errorf("Expected channel vector [6 8], got %v", vec)
	}

	sub := arr.Select([]int{2, 0})
	if sub.NumTrials() != 2 {
		t.Fatalf("Expected 2 trials after selection, got %d", sub.NumTrials())
	}
	if got := sub.FeatureVector(0, 0); got[0] != 9 {
		t.Errorf("Selection did not preserve trial order: %v", got)
	}
}

// TestTable_ColumnMismatch verifies column length validation
func TestTable_ColumnMismatch(t *testing.T) {
	tab := NewTable(3)
	err := tab.AddColumn("x", []float64{1, 2})
	if !core.IsDimensionMismatch(err) {
		t.Errorf("Expected dimension mismatch, got %v", err)
	}
}

// TestTable_WhereSemantics verifies NaN cells never match a filter
func TestTable_WhereSemantics(t *testing.T) {
	tab := NewTable(5)
	if err := tab.AddColumn("vis", []float64{0, 1, math.NaN(), 1, 0}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	if sel := tab.Where("vis", 1); len(sel) != 2 {
		t.Errorf("Expected 2 matches for vis=1, got %v", sel)
	}
	if sel := tab.WhereTrue("vis"); len(sel) != 2 {
		t.Errorf("Expected NaN excluded from WhereTrue, got %v", sel)
	}
	if sel := tab.WhereFalse("vis"); len(sel) != 2 {
		t.Errorf("Expected 2 zero rows, got %v", sel)
	}
}

// TestTable_SelectPreservesOrder verifies subsetting keeps column order and
// row alignment
func TestTable_SelectPreservesOrder(t *testing.T) {
	tab := NewTable(4)
	if err := tab.AddColumn("a", []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := tab.AddColumn("b", []float64{10, 20, 30, 40}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	sub := tab.Select([]int{3, 1})
	if sub.Rows != 2 {
		t.Fatalf("Expected 2 rows, got %d", sub.Rows)
	}
	col, _ := sub.Column("b")
	if col[0] != 40 || col[1] != 20 {
		t.Errorf("Selection misaligned column b: %v", col)
	}
	if len(sub.Order) != 2 || sub.Order[0] != "a" {
		t.Errorf("Column order not preserved: %v", sub.Order)
	}
}
