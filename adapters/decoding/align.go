package decoding

import (
	"math"

	"godecode/domain/analysis"
)

// AlignOnDiag re-indexes each row of a train x test score matrix so that the
// training-time cell sits at column zero and columns count the offset from
// training time. The shift is circular: cells that fall off one edge wrap to
// the other, so boundary cells of short series mix early and late test times
// and should be read with care.
func AlignOnDiag(m [][]float64) [][]float64 {
	n := len(m)
	out := make([][]float64, n)
	for i := range m {
		row := make([]float64, len(m[i]))
		for j := range m[i] {
			row[j] = m[i][(i+j)%len(m[i])]
		}
		out[i] = row
	}
	return out
}

// AlignToCenter aligns on the diagonal and rolls each row so the
// training-time cell sits at the center column; offsets to the left are test
// times before training time, to the right after.
func AlignToCenter(m [][]float64) [][]float64 {
	aligned := AlignOnDiag(m)
	n := len(aligned)
	if n == 0 {
		return aligned
	}
	half := len(aligned[0]) / 2
	out := make([][]float64, n)
	for i := range aligned {
		w := len(aligned[i])
		row := make([]float64, w)
		for j := range aligned[i] {
			row[(j+half)%w] = aligned[i][j]
		}
		out[i] = row
	}
	return out
}

// DurationProfile centers a score matrix on its diagonal and averages the
// training-time rows inside each time-of-interest window, producing one
// generalization profile per window indexed by offset from training time.
func DurationProfile(scores [][]float64, times []float64, tois []analysis.TOI) [][]float64 {
	centered := AlignToCenter(scores)
	out := make([][]float64, len(tois))
	for w, toi := range tois {
		bins := toi.Indices(times)
		profile := nanRow(len(times))
		if len(bins) > 0 {
			for off := range profile {
				col := make([]float64, len(bins))
				for j, b := range bins {
					col[j] = centered[b][off]
				}
				profile[off] = nanMean(col)
			}
		}
		out[w] = profile
	}
	return out
}

func nanMean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
