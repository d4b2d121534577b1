package app

import (
	"context"
	"fmt"
	"math"

	engine "godecode/adapters/decoding"
	"godecode/adapters/stats"
	"godecode/domain/analysis"
	"godecode/domain/core"
	"godecode/domain/decoding"
	"godecode/domain/trial"
	"godecode/internal"
	"godecode/ports"
)

// DerivedService computes the derived score artifacts from stored prediction
// tensors: factor-level subscores, diagonal timecourses, TOI aggregates,
// single-trial correlation maps and duration profiles. Each derivation is
// memoized under its own score key; a stored result is reused, never
// recomputed.
type DerivedService struct {
	Store   ports.ArtifactStore
	Cluster *stats.ClusterTest
	Log     *internal.Logger
}

// NewDerivedService assembles the service with a seeded cluster test.
func NewDerivedService(store ports.ArtifactStore, seed int64, log *internal.Logger) *DerivedService {
	return &DerivedService{Store: store, Cluster: stats.NewClusterTest(seed), Log: log}
}

// SubscoreByFactor re-scores each subject's generalization matrix within each
// level of a factor and cluster-tests every level against chance. A level
// with fewer than analysis.MinSubsetTrials trials of its own yields an
// all-NaN matrix, absent-trial union or not. Persisted under
// "<analysis>-<factor>".
func (s *DerivedService) SubscoreByFactor(ctx context.Context, spec *analysis.Spec, data []SubjectData, factor analysis.Factor) (*decoding.FactorScores, error) {
	key := decoding.Derived(spec.Name, "-"+factor.Name)
	var cached decoding.FactorScores
	if ok, err := s.Store.Has(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if err := s.Store.Load(ctx, key, &cached); err != nil {
			return nil, err
		}
		s.Log.Debug("cache hit %s", key.Analysis)
		return &cached, nil
	}

	out := &decoding.FactorScores{Levels: factor.Levels}
	for _, sd := range data {
		art, err := s.loadWithPredictions(ctx, sd.Subject, spec.Name)
		if err != nil {
			return nil, err
		}
		if art == nil {
			continue
		}
		if out.Times == nil {
			out.Times = art.Times
		}
		perLevel := make([][][]float64, len(factor.Levels))
		for li, level := range factor.Levels {
			subset, atLevel := subsetForLevel(spec, sd.Meta, art.Selected, factor, level)
			// The level must reach the minimum on its own; the absent-trial
			// union never rescues an undersampled level.
			if atLevel < analysis.MinSubsetTrials {
				subset = nil
			}
			perLevel[li] = engine.Subscore(art, subset)
		}
		out.Scores = append(out.Scores, perLevel)
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("%s: no subject artifacts to subscore", spec.Name)
	}

	out.PVals = make([][][]float64, len(factor.Levels))
	for li := range factor.Levels {
		effects := make([][][]float64, len(out.Scores))
		for si := range out.Scores {
			effects[si] = minusChance(out.Scores[si][li], spec.Chance)
		}
		out.PVals[li] = s.Cluster.Test2D(effects)
	}

	if err := s.Store.Save(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeContinuous builds the diagonal timecourse artifact: per factor, the
// per-time subscore at each level plus the per-time rank correlation of
// single-trial prediction error with the factor, computed on present trials
// and controlled for the other factor. Persisted under
// "<analysis>-continuous".
func (s *DerivedService) AnalyzeContinuous(ctx context.Context, spec *analysis.Spec, data []SubjectData, factors []analysis.Factor) (*decoding.ContinuousScores, error) {
	key := decoding.Derived(spec.Name, "-continuous")
	var cached decoding.ContinuousScores
	if ok, err := s.Store.Has(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if err := s.Store.Load(ctx, key, &cached); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	out := &decoding.ContinuousScores{Factors: make(map[string]*decoding.FactorTimecourse)}
	for _, f := range factors {
		out.Factors[f.Name] = &decoding.FactorTimecourse{Levels: f.Levels}
	}

	for _, sd := range data {
		art, err := s.loadWithPredictions(ctx, sd.Subject, spec.Name)
		if err != nil {
			return nil, err
		}
		if art == nil {
			continue
		}
		if out.Times == nil {
			out.Times = art.Times
		}
		scalar := engine.ScalarDiagonal(engine.DiagonalPredictions(art))
		errMat := engine.PredictionError(scalar, art.Labels, art.Kind)

		for fi, f := range factors {
			tc := out.Factors[f.Name]

			nTimes := len(art.Times)
			scores := make([][]float64, nTimes)
			for t := range scores {
				scores[t] = make([]float64, len(f.Levels))
			}
			for li, level := range f.Levels {
				subset, _ := subsetForLevel(spec, sd.Meta, art.Selected, f, level)
				series := engine.SubscoreSeries(scalar, art.Labels, subset, art.Kind)
				for t := range series {
					scores[t][li] = series[t]
				}
			}
			tc.Scores = append(tc.Scores, scores)

			r, err := s.regress(spec, sd.Meta, art.Selected, errMat, f, otherFactor(factors, fi))
			if err != nil {
				return nil, err
			}
			tc.R = append(tc.R, r)
		}
	}
	if out.Times == nil {
		return nil, fmt.Errorf("%s: no subject artifacts to analyze", spec.Name)
	}

	if err := s.Store.Save(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeTOI aggregates diagonal predictions inside each time-of-interest
// window and computes the same per-level subscores and regressions on the
// aggregated values. Persisted under "<analysis>-toi".
func (s *DerivedService) AnalyzeTOI(ctx context.Context, spec *analysis.Spec, data []SubjectData, factors []analysis.Factor, tois []analysis.TOI) (*decoding.TOIScores, error) {
	key := decoding.Derived(spec.Name, "-toi")
	var cached decoding.TOIScores
	if ok, err := s.Store.Has(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if err := s.Store.Load(ctx, key, &cached); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	out := &decoding.TOIScores{Factors: make(map[string]*decoding.FactorTOI)}
	for _, f := range factors {
		out.Factors[f.Name] = &decoding.FactorTOI{Levels: f.Levels}
	}

	loaded := 0
	for _, sd := range data {
		art, err := s.loadWithPredictions(ctx, sd.Subject, spec.Name)
		if err != nil {
			return nil, err
		}
		if art == nil {
			continue
		}
		loaded++
		diag := engine.DiagonalPredictions(art)

		// One prediction column per TOI, shaped [trial][1] so the per-time
		// subscore and regression paths apply unchanged.
		perTOI := make([][][]float64, len(tois))
		for w, toi := range tois {
			vals := engine.AverageTOI(diag, art.Times, toi, art.Kind)
			cols := make([][]float64, len(vals))
			for i, v := range vals {
				cols[i] = []float64{v}
			}
			perTOI[w] = cols
		}

		for fi, f := range factors {
			ft := out.Factors[f.Name]
			scores := make([][]float64, len(tois))
			rs := make([]float64, len(tois))
			for w := range tois {
				scores[w] = make([]float64, len(f.Levels))
				for li, level := range f.Levels {
					subset, _ := subsetForLevel(spec, sd.Meta, art.Selected, f, level)
					series := engine.SubscoreSeries(perTOI[w], art.Labels, subset, art.Kind)
					scores[w][li] = series[0]
				}
				errMat := engine.PredictionError(perTOI[w], art.Labels, art.Kind)
				r, err := s.regress(spec, sd.Meta, art.Selected, errMat, f, otherFactor(factors, fi))
				if err != nil {
					return nil, err
				}
				rs[w] = r[0]
			}
			ft.Scores = append(ft.Scores, scores)
			ft.R = append(ft.R, rs)
		}
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%s: no subject artifacts to analyze", spec.Name)
	}

	if err := s.Store.Save(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Correlate computes the train x test map of rank correlation between
// single-trial predictions and a factor, on present trials, then
// cluster-tests the subject maps against zero. Persisted under
// "<analysis>-R<factor>".
func (s *DerivedService) Correlate(ctx context.Context, spec *analysis.Spec, data []SubjectData, factor analysis.Factor) (*decoding.CorrelationScores, error) {
	key := decoding.Derived(spec.Name, "-R"+factor.Name)
	var cached decoding.CorrelationScores
	if ok, err := s.Store.Has(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if err := s.Store.Load(ctx, key, &cached); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	out := &decoding.CorrelationScores{}
	for _, sd := range data {
		art, err := s.loadWithPredictions(ctx, sd.Subject, spec.Name)
		if err != nil {
			return nil, err
		}
		if art == nil {
			continue
		}
		if out.Times == nil {
			out.Times = art.Times
		}
		nT := len(art.Times)

		col, ok := sd.Meta.Column(factor.Column)
		if !ok {
			return nil, fmt.Errorf("%s: metadata has no column %s", spec.Name, factor.Column)
		}
		positions := presentPositions(spec, sd.Meta, art.Selected)
		var keep []int
		var x []float64
		for _, pos := range positions {
			v := col[art.Selected[pos]]
			if math.IsNaN(v) {
				continue
			}
			keep = append(keep, pos)
			x = append(x, v)
		}

		flat := make([][]float64, len(keep))
		for i, pos := range keep {
			row := make([]float64, nT*nT)
			for tr := 0; tr < nT; tr++ {
				for te := 0; te < nT; te++ {
					row[tr*nT+te] = art.Predictions.Preds[tr][te][pos][0]
				}
			}
			flat[i] = row
		}
		rFlat, err := stats.RepeatedSpearman(flat, x)
		if err != nil {
			return nil, err
		}
		rMap := make([][]float64, nT)
		for tr := range rMap {
			rMap[tr] = append([]float64(nil), rFlat[tr*nT:(tr+1)*nT]...)
		}
		out.R = append(out.R, rMap)
	}
	if len(out.R) == 0 {
		return nil, fmt.Errorf("%s: no subject artifacts to correlate", spec.Name)
	}

	out.PVals = s.Cluster.Test2D(out.R)

	if err := s.Store.Save(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DurationTOI centers each factor-level score matrix on its diagonal,
// averages the training rows inside each TOI and cluster-tests the resulting
// offset profiles against chance. Built on top of the (memoized) factor
// subscores. Persisted under "<analysis>-duration-toi".
func (s *DerivedService) DurationTOI(ctx context.Context, spec *analysis.Spec, data []SubjectData, factor analysis.Factor, tois []analysis.TOI) (*decoding.DurationScores, error) {
	key := decoding.Derived(spec.Name, "-duration-toi")
	var cached decoding.DurationScores
	if ok, err := s.Store.Has(ctx, key); err != nil {
		return nil, err
	} else if ok {
		if err := s.Store.Load(ctx, key, &cached); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	fs, err := s.SubscoreByFactor(ctx, spec, data, factor)
	if err != nil {
		return nil, err
	}

	out := &decoding.DurationScores{Times: fs.Times}
	for si := range fs.Scores {
		perLevel := make([][][]float64, len(factor.Levels))
		for li := range factor.Levels {
			perLevel[li] = engine.DurationProfile(fs.Scores[si][li], fs.Times, tois)
		}
		out.Scores = append(out.Scores, perLevel)
	}

	out.PVals = make([][][]float64, len(factor.Levels))
	for li := range factor.Levels {
		out.PVals[li] = make([][]float64, len(tois))
		for w := range tois {
			effects := make([][]float64, len(out.Scores))
			for si := range out.Scores {
				effects[si] = minusChanceRow(out.Scores[si][li][w], spec.Chance)
			}
			out.PVals[li][w] = s.Cluster.Test1D(effects)
		}
	}

	if err := s.Store.Save(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadWithPredictions fetches a subject's artifact, tolerating skipped units
// (missing artifact yields nil) but failing on pruned predictions, which the
// derivations cannot work without.
func (s *DerivedService) loadWithPredictions(ctx context.Context, subject core.SubjectID, name core.AnalysisName) (*decoding.Artifact, error) {
	art, err := loadArtifact(ctx, s.Store, subject, name)
	if core.IsMissingArtifact(err) {
		s.Log.Warn("no artifact for %s/%s, excluded from group", subject, name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := engine.RequirePredictions(art); err != nil {
		return nil, err
	}
	return art, nil
}

// regress correlates per-trial prediction error with a factor on present
// trials, controlling for the covariate factor's levels when one is given.
func (s *DerivedService) regress(spec *analysis.Spec, meta *trial.Table, selected []int, errMat [][]float64, f analysis.Factor, cov *analysis.Factor) ([]float64, error) {
	col, ok := meta.Column(f.Column)
	if !ok {
		return nil, fmt.Errorf("%s: metadata has no column %s", spec.Name, f.Column)
	}
	positions := presentPositions(spec, meta, selected)
	var keep []int
	var x []float64
	for _, pos := range positions {
		v := col[selected[pos]]
		if math.IsNaN(v) {
			continue
		}
		keep = append(keep, pos)
		x = append(x, v)
	}
	preds := make([][]float64, len(keep))
	for i, pos := range keep {
		preds[i] = errMat[pos]
	}

	if cov == nil {
		return stats.RepeatedSpearman(preds, x)
	}
	covCol, ok := meta.Column(cov.Column)
	if !ok {
		return nil, fmt.Errorf("%s: metadata has no column %s", spec.Name, cov.Column)
	}
	covVals := make([]float64, len(keep))
	for i, pos := range keep {
		covVals[i] = covCol[selected[pos]]
	}
	return stats.RepeatedSpearmanIndependent(preds, x, covVals, cov.Levels)
}

// otherFactor returns the covariate for factor i: the single other factor
// when exactly two were given, nil otherwise.
func otherFactor(factors []analysis.Factor, i int) *analysis.Factor {
	if len(factors) != 2 {
		return nil
	}
	return &factors[1-i]
}

// subsetForLevel returns the positions within the selection whose factor
// value equals the level, together with that level-only count. For analyses
// that union absent trials, positions whose presence column is zero are
// included in every level's subset; the count excludes them, so callers can
// apply size rules to the level itself rather than the unioned subset.
func subsetForLevel(spec *analysis.Spec, meta *trial.Table, selected []int, f analysis.Factor, level float64) (subset []int, atLevel int) {
	col, ok := meta.Column(f.Column)
	if !ok {
		return nil, 0
	}
	var presence []float64
	if spec.UnionAbsent && spec.PresenceColumn != "" {
		presence, _ = meta.Column(spec.PresenceColumn)
	}
	for pos, row := range selected {
		if col[row] == level {
			subset = append(subset, pos)
			atLevel++
			continue
		}
		if presence != nil && presence[row] == 0 {
			subset = append(subset, pos)
		}
	}
	return subset, atLevel
}

// presentPositions returns the positions within the selection whose presence
// column is nonzero; with no presence column configured, every position.
func presentPositions(spec *analysis.Spec, meta *trial.Table, selected []int) []int {
	if spec.PresenceColumn == "" {
		all := make([]int, len(selected))
		for i := range all {
			all[i] = i
		}
		return all
	}
	presence, ok := meta.Column(spec.PresenceColumn)
	if !ok {
		return nil
	}
	var out []int
	for pos, row := range selected {
		if presence[row] != 0 && !math.IsNaN(presence[row]) {
			out = append(out, pos)
		}
	}
	return out
}

// minusChance subtracts chance from every cell, keeping NaN cells NaN.
func minusChance(m [][]float64, chance float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = minusChanceRow(row, chance)
	}
	return out
}

func minusChanceRow(row []float64, chance float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v - chance
	}
	return out
}
