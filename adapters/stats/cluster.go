package stats

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Tail selects the test sidedness.
type Tail int

const (
	// TwoTailed tests positive and negative clusters (default).
	TwoTailed Tail = iota
	// OneTailed tests positive clusters only.
	OneTailed
)

// ClusterTest is a one-sample cluster-based permutation test against zero
// over subject x cells effect arrays (score minus chance). Cluster-level
// inference controls for multiple comparisons across contiguous cells.
type ClusterTest struct {
	// Alpha is the primary (cluster-forming) threshold, applied two-sided to
	// the per-cell t statistic.
	Alpha float64
	// Permutations is the number of subject sign-flip permutations.
	Permutations int
	// Seed makes the null distribution reproducible.
	Seed int64
	// Tail selects one- or two-tailed inference.
	Tail Tail
}

// NewClusterTest returns a test with the conventional defaults.
func NewClusterTest(seed int64) *ClusterTest {
	return &ClusterTest{Alpha: 0.05, Permutations: 1024, Seed: seed, Tail: TwoTailed}
}

// Test1D runs the test over subject x time effects and returns one p-value
// per time point.
func (ct *ClusterTest) Test1D(effects [][]float64) []float64 {
	flat := ct.test(effects, len(effects[0]), 1)
	return flat
}

// Test2D runs the test over subject x train x test effects, with 4-connected
// adjacency over the full grid, and returns a train x test p-value matrix.
func (ct *ClusterTest) Test2D(effects [][][]float64) [][]float64 {
	nSubj := len(effects)
	rows := len(effects[0])
	cols := len(effects[0][0])
	flatEff := make([][]float64, nSubj)
	for s := range effects {
		flatEff[s] = make([]float64, rows*cols)
		for i := range effects[s] {
			copy(flatEff[s][i*cols:(i+1)*cols], effects[s][i])
		}
	}
	flat := ct.test(flatEff, rows, cols)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = append([]float64(nil), flat[i*cols:(i+1)*cols]...)
	}
	return out
}

// test runs the permutation machinery over row-major cells of shape
// rows x cols (cols == 1 reduces adjacency to runs over a single axis).
func (ct *ClusterTest) test(effects [][]float64, rows, cols int) []float64 {
	nSubj := len(effects)
	nCells := rows * cols
	rng := rand.New(rand.NewSource(ct.Seed))

	threshold := ct.primaryThreshold(nSubj)
	signs := make([]float64, nSubj)
	for i := range signs {
		signs[i] = 1
	}

	tObs := cellT(effects, signs, nCells)
	clusters := findClusters(tObs, rows, cols, threshold, ct.Tail)

	pvals := make([]float64, nCells)
	for i := range pvals {
		if math.IsNaN(tObs[i]) {
			pvals[i] = math.NaN()
		} else {
			pvals[i] = 1
		}
	}
	if len(clusters) == 0 {
		return pvals
	}

	// Null distribution of the maximum cluster mass under sign flips.
	nullMax := make([]float64, ct.Permutations)
	for p := 0; p < ct.Permutations; p++ {
		for s := range signs {
			if rng.Intn(2) == 0 {
				signs[s] = 1
			} else {
				signs[s] = -1
			}
		}
		tPerm := cellT(effects, signs, nCells)
		permClusters := findClusters(tPerm, rows, cols, threshold, ct.Tail)
		maxMass := 0.0
		for _, c := range permClusters {
			if c.mass > maxMass {
				maxMass = c.mass
			}
		}
		nullMax[p] = maxMass
	}

	for _, c := range clusters {
		exceed := 0
		for _, m := range nullMax {
			if m >= c.mass {
				exceed++
			}
		}
		// The observed labeling counts as one permutation.
		p := float64(exceed+1) / float64(ct.Permutations+1)
		for _, cell := range c.cells {
			pvals[cell] = p
		}
	}
	return pvals
}

// primaryThreshold is the two-sided t quantile at Alpha for n-1 degrees of
// freedom.
func (ct *ClusterTest) primaryThreshold(nSubj int) float64 {
	df := float64(nSubj - 1)
	if df < 1 {
		df = 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return dist.Quantile(1 - ct.Alpha/2)
}

// cellT computes the per-cell one-sample t statistic across subjects after
// applying the sign flips, skipping NaN subjects. Cells with fewer than two
// finite subjects are NaN. A zero-variance cell gets a large finite t so
// cluster masses stay comparable.
func cellT(effects [][]float64, signs []float64, nCells int) []float64 {
	t := make([]float64, nCells)
	for cell := 0; cell < nCells; cell++ {
		sum, n := 0.0, 0
		for s := range effects {
			v := effects[s][cell]
			if math.IsNaN(v) {
				continue
			}
			sum += signs[s] * v
			n++
		}
		if n < 2 {
			t[cell] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		ss := 0.0
		for s := range effects {
			v := effects[s][cell]
			if math.IsNaN(v) {
				continue
			}
			d := signs[s]*v - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(n-1))
		if sd == 0 {
			if mean == 0 {
				t[cell] = 0
			} else if mean > 0 {
				t[cell] = 1e6
			} else {
				t[cell] = -1e6
			}
			continue
		}
		t[cell] = mean / (sd / math.Sqrt(float64(n)))
	}
	return t
}

type cluster struct {
	cells []int
	mass  float64
}

// findClusters groups suprathreshold cells into 4-connected components over
// the rows x cols grid. Positive and negative clusters are kept separate;
// OneTailed drops the negative ones.
func findClusters(t []float64, rows, cols int, threshold float64, tail Tail) []cluster {
	sign := func(i int) int {
		v := t[i]
		if math.IsNaN(v) {
			return 0
		}
		if v >= threshold {
			return 1
		}
		if tail == TwoTailed && v <= -threshold {
			return -1
		}
		return 0
	}

	visited := make([]bool, len(t))
	var clusters []cluster
	for start := range t {
		s := sign(start)
		if s == 0 || visited[start] {
			continue
		}
		// Breadth-first flood fill over same-sign neighbors.
		var cells []int
		mass := 0.0
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cells = append(cells, cur)
			mass += math.Abs(t[cur])
			r, c := cur/cols, cur%cols
			for _, nb := range [4][2]int{{r - 1, c}, {r + 1, c}, {r, c - 1}, {r, c + 1}} {
				nr, nc := nb[0], nb[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				idx := nr*cols + nc
				if visited[idx] || sign(idx) != s {
					continue
				}
				visited[idx] = true
				queue = append(queue, idx)
			}
		}
		clusters = append(clusters, cluster{cells: cells, mass: mass})
	}
	return clusters
}
