package decoding

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"godecode/domain/analysis"
	"godecode/domain/decoding"
	"godecode/domain/trial"
)

// Generalizer trains one estimator per time bin and evaluates each one at
// every time bin on cross-validated held-out trials, producing the full
// train x test generalization artifact for one (subject, analysis) pair.
type Generalizer struct {
	// Workers bounds the parallel (fold x train-bin) fit tasks; 0 means
	// GOMAXPROCS.
	Workers int
	// Seed drives the fold shuffling.
	Seed int64
}

// NewGeneralizer returns an engine with default parallelism.
func NewGeneralizer(seed int64) *Generalizer {
	return &Generalizer{Seed: seed}
}

// Run produces the GAT artifact for one subject. A selection predicate that
// matches zero trials yields (nil, nil): the unit is skipped, not failed.
func (g *Generalizer) Run(ctx context.Context, spec *analysis.Spec, arr *trial.Array, meta *trial.Table) (*decoding.Artifact, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if meta.Rows != arr.NumTrials() {
		return nil, fmt.Errorf("metadata rows: %d trials vs %d rows", arr.NumTrials(), meta.Rows)
	}

	selected, labels := spec.SelectTrials(meta)
	if len(selected) == 0 {
		return nil, nil
	}
	sub := arr.Select(selected)

	nTimes := arr.NumTimes()
	nTrials := len(selected)
	dim := 1
	if spec.Kind == analysis.KindCircular {
		dim = 2
	}
	preds := decoding.NewPredictionTensor(nTimes, nTrials, dim)

	folds := makeFolds(labels, spec.Folds, spec.Kind == analysis.KindCategorical, g.Seed)

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	for _, fold := range folds {
		if len(fold.test) == 0 {
			continue
		}
		fold := fold
		for tTrain := 0; tTrain < nTimes; tTrain++ {
			tTrain := tTrain
			grp.Go(func() error {
				est := NewEstimator(spec.Kind)
				x := featureRows(sub, fold.train, tTrain)
				y := make([]float64, len(fold.train))
				for i, idx := range fold.train {
					y[i] = labels[idx]
				}
				if err := est.Fit(x, y); err != nil {
					return fmt.Errorf("fit train bin %d: %w", tTrain, err)
				}
				for tTest := 0; tTest < nTimes; tTest++ {
					testX := featureRows(sub, fold.test, tTest)
					for i, p := range est.Predict(testX) {
						copy(preds.Preds[tTrain][tTest][fold.test[i]], p)
					}
				}
				return nil
			})
		}
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	art := &decoding.Artifact{
		Subject:     "",
		Analysis:    spec.Name,
		Kind:        spec.Kind,
		Chance:      spec.Chance,
		Times:       arr.Times,
		Selected:    selected,
		Labels:      labels,
		Predictions: preds,
	}

	// Scoring goes through the subscore path on the full selection so that
	// re-scoring the full trial set later reproduces this matrix exactly.
	all := make([]int, nTrials)
	for i := range all {
		all[i] = i
	}
	art.Scores = Subscore(art, all)

	if spec.KeepModels {
		states, err := g.fitFinal(ctx, spec, sub, labels, workers)
		if err != nil {
			return nil, err
		}
		art.Estimators = states
	}
	return art, nil
}

// fitFinal refits one estimator per train bin on the full selection; these
// are the models persisted for cross-condition generalization.
func (g *Generalizer) fitFinal(ctx context.Context, spec *analysis.Spec, sub *trial.Array, labels []float64, workers int) ([]decoding.EstimatorState, error) {
	nTimes := sub.NumTimes()
	all := make([]int, sub.NumTrials())
	for i := range all {
		all[i] = i
	}
	states := make([]decoding.EstimatorState, nTimes)
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for t := 0; t < nTimes; t++ {
		t := t
		grp.Go(func() error {
			est := NewEstimator(spec.Kind)
			if err := est.Fit(featureRows(sub, all, t), labels); err != nil {
				return fmt.Errorf("final fit bin %d: %w", t, err)
			}
			states[t] = est.State()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

// featureRows extracts the channel vectors of the given trials at one time bin.
func featureRows(arr *trial.Array, trials []int, timeBin int) [][]float64 {
	rows := make([][]float64, len(trials))
	for i, idx := range trials {
		rows[i] = arr.FeatureVector(idx, timeBin)
	}
	return rows
}

type fold struct {
	train []int
	test  []int
}

// makeFolds builds k cross-validation folds over trial indices,
// stratified by label when the target is categorical. Deterministic for a
// fixed seed.
func makeFolds(labels []float64, k int, stratified bool, seed int64) []fold {
	n := len(labels)
	if k > n {
		k = n
	}
	rng := rand.New(rand.NewSource(seed))

	assign := make([]int, n) // trial -> fold
	if stratified {
		byLabel := make(map[float64][]int)
		var keys []float64
		for i, y := range labels {
			if _, ok := byLabel[y]; !ok {
				keys = append(keys, y)
			}
			byLabel[y] = append(byLabel[y], i)
		}
		sort.Float64s(keys)
		next := 0
		for _, y := range keys {
			group := byLabel[y]
			rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			for _, idx := range group {
				assign[idx] = next % k
				next++
			}
		}
	} else {
		perm := rng.Perm(n)
		for pos, idx := range perm {
			assign[idx] = pos % k
		}
	}

	folds := make([]fold, k)
	for idx, f := range assign {
		folds[f].test = append(folds[f].test, idx)
	}
	for f := range folds {
		inTest := make(map[int]bool, len(folds[f].test))
		for _, idx := range folds[f].test {
			inTest[idx] = true
		}
		for idx := 0; idx < n; idx++ {
			if !inTest[idx] {
				folds[f].train = append(folds[f].train, idx)
			}
		}
	}
	return folds
}
