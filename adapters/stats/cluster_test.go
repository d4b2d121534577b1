package stats

import (
	"math"
	"math/rand"
	"testing"
)

// constantEffects builds subject x rows x cols effects with a shared positive
// offset plus small per-subject variation so the per-cell variance is nonzero.
func constantEffects(nSubj, rows, cols int) [][][]float64 {
	effects := make([][][]float64, nSubj)
	for s := range effects {
		effects[s] = make([][]float64, rows)
		for i := range effects[s] {
			effects[s][i] = make([]float64, cols)
			for j := range effects[s][i] {
				effects[s][i][j] = 1.0 + 0.05*float64(s%3)
			}
		}
	}
	return effects
}

// TestClusterTest_ConstantPositiveEffect verifies a uniform positive effect
// across enough subjects comes out significant everywhere
func TestClusterTest_ConstantPositiveEffect(t *testing.T) {
	ct := NewClusterTest(7)
	effects := constantEffects(12, 5, 5)

	pvals := ct.Test2D(effects)
	for i, row := range pvals {
		for j, p := range row {
			if math.IsNaN(p) {
				t.Fatalf("Unexpected NaN p-value at (%d,%d)", i, j)
			}
			if p >= 0.05 {
				t.Errorf("Expected p<0.05 at (%d,%d), got %g", i, j, p)
			}
		}
	}
}

// TestClusterTest_Deterministic verifies a fixed seed yields bit-identical
// p-values across runs
func TestClusterTest_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	effects := make([][][]float64, 8)
	for s := range effects {
		effects[s] = make([][]float64, 6)
		for i := range effects[s] {
			effects[s][i] = make([]float64, 6)
			for j := range effects[s][i] {
				effects[s][i][j] = rng.NormFloat64()
				if i >= 2 && i < 5 && j >= 2 && j < 5 {
					effects[s][i][j] += 1.5
				}
			}
		}
	}

	p1 := NewClusterTest(11).Test2D(effects)
	p2 := NewClusterTest(11).Test2D(effects)
	for i := range p1 {
		for j := range p1[i] {
			a, b := p1[i][j], p2[i][j]
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}
			if a != b {
				t.Fatalf("Nondeterministic p at (%d,%d): %g vs %g", i, j, a, b)
			}
		}
	}
}

// TestClusterTest_PValueRange verifies every defined p-value lies in [0,1]
func TestClusterTest_PValueRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	effects := make([][][]float64, 10)
	for s := range effects {
		effects[s] = make([][]float64, 4)
		for i := range effects[s] {
			effects[s][i] = make([]float64, 4)
			for j := range effects[s][i] {
				effects[s][i][j] = rng.NormFloat64()
			}
		}
	}

	for _, p := range flatten(NewClusterTest(5).Test2D(effects)) {
		if math.IsNaN(p) {
			continue
		}
		if p < 0 || p > 1 {
			t.Errorf("p-value out of range: %g", p)
		}
	}
}

// TestClusterTest_ZeroEffect verifies exactly-zero effects produce no
// clusters and p=1 everywhere
func TestClusterTest_ZeroEffect(t *testing.T) {
	effects := make([][][]float64, 6)
	for s := range effects {
		effects[s] = [][]float64{{0, 0, 0}, {0, 0, 0}}
	}
	for _, p := range flatten(NewClusterTest(1).Test2D(effects)) {
		if p != 1 {
			t.Errorf("Expected p=1 under the null, got %g", p)
		}
	}
}

// TestClusterTest_NaNCellPropagates verifies a cell undefined for every
// subject stays NaN while its neighbors are tested
func TestClusterTest_NaNCellPropagates(t *testing.T) {
	effects := constantEffects(12, 3, 3)
	for s := range effects {
		effects[s][1][1] = math.NaN()
	}

	pvals := NewClusterTest(2).Test2D(effects)
	if !math.IsNaN(pvals[1][1]) {
		t.Errorf("Expected NaN at the all-NaN cell, got %g", pvals[1][1])
	}
	if math.IsNaN(pvals[0][0]) {
		t.Error("Neighbor cell should still be tested")
	}
	if pvals[0][0] >= 0.05 {
		t.Errorf("Expected significant neighbor, got p=%g", pvals[0][0])
	}
}

// TestClusterTest_Test1D verifies the one-dimensional path finds a run of
// positive effect
func TestClusterTest_Test1D(t *testing.T) {
	effects := make([][]float64, 12)
	for s := range effects {
		effects[s] = make([]float64, 10)
		for j := 3; j < 7; j++ {
			effects[s][j] = 0.8 + 0.05*float64(s%3)
		}
	}

	pvals := NewClusterTest(4).Test1D(effects)
	for j := 3; j < 7; j++ {
		if pvals[j] >= 0.05 {
			t.Errorf("Expected p<0.05 inside the effect window at %d, got %g", j, pvals[j])
		}
	}
	if pvals[0] != 1 {
		t.Errorf("Expected p=1 outside the effect window, got %g", pvals[0])
	}
}

// TestClusterTest_OneTailedIgnoresNegative verifies the one-tailed option
// drops negative clusters
func TestClusterTest_OneTailedIgnoresNegative(t *testing.T) {
	effects := constantEffects(12, 2, 2)
	for s := range effects {
		for i := range effects[s] {
			for j := range effects[s][i] {
				effects[s][i][j] = -effects[s][i][j]
			}
		}
	}

	ct := NewClusterTest(6)
	ct.Tail = OneTailed
	for _, p := range flatten(ct.Test2D(effects)) {
		if p != 1 {
			t.Errorf("Expected p=1 for negative effects under one-tailed test, got %g", p)
		}
	}
}

func flatten(m [][]float64) []float64 {
	var out []float64
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}
