// Package trial holds the in-memory representation of epoched recordings:
// a trial-by-channel-by-time numeric array and the aligned behavioral
// metadata table. Both are produced by an external preprocessing step and
// consumed read-only by the decoding engines.
package trial

import (
	"fmt"
	"math"

	"godecode/domain/core"
)

// Array is an ordered sequence of trials, each a channels x time-bins
// feature matrix. All trials share channel count and time-bin count.
type Array struct {
	Data  [][][]float64 `json:"data"` // [trial][channel][time]
	Times []float64     `json:"times"`
}

// NewArray validates that trials are rectangular and aligned with the time axis.
func NewArray(data [][][]float64, times []float64) (*Array, error) {
	if len(data) == 0 {
		return &Array{Data: data, Times: times}, nil
	}
	nChan := len(data[0])
	for i, tr := range data {
		if len(tr) != nChan {
			return nil, fmt.Errorf("%w: trial %d has %d channels, expected %d",
				core.ErrRaggedTrials, i, len(tr), nChan)
		}
		for c, ch := range tr {
			if len(ch) != len(times) {
				return nil, fmt.Errorf("%w: trial %d channel %d has %d bins, expected %d",
					core.ErrRaggedTrials, i, c, len(ch), len(times))
			}
		}
	}
	return &Array{Data: data, Times: times}, nil
}

// NumTrials returns the trial count.
func (a *Array) NumTrials() int { return len(a.Data) }

// NumChannels returns the channel count shared by all trials.
func (a *Array) NumChannels() int {
	if len(a.Data) == 0 {
		return 0
	}
	return len(a.Data[0])
}

// NumTimes returns the number of time bins.
func (a *Array) NumTimes() int { return len(a.Times) }

// FeatureVector returns the channel vector of one trial at one time bin.
func (a *Array) FeatureVector(trial, timeBin int) []float64 {
	vec := make([]float64, a.NumChannels())
	for c := range vec {
		vec[c] = a.Data[trial][c][timeBin]
	}
	return vec
}

// Select returns a new Array restricted to the given trial indices.
// The time axis is shared, not copied.
func (a *Array) Select(indices []int) *Array {
	out := &Array{Data: make([][][]float64, len(indices)), Times: a.Times}
	for i, idx := range indices {
		out.Data[i] = a.Data[idx]
	}
	return out
}

// Table is the trial metadata: named float64 factor columns aligned with an
// Array by row order. NaN marks a factor value that is undefined for a trial
// (e.g. visibility of an absent target).
type Table struct {
	Order   []core.FactorName            `json:"order"`
	Columns map[core.FactorName][]float64 `json:"columns"`
	Rows    int                           `json:"rows"`
}

// NewTable creates an empty table with the given row count.
func NewTable(rows int) *Table {
	return &Table{Columns: make(map[core.FactorName][]float64), Rows: rows}
}

// AddColumn registers a factor column. The column length must match the row count.
func (t *Table) AddColumn(name core.FactorName, values []float64) error {
	if len(values) != t.Rows {
		return core.NewDimensionMismatchError(string(name), len(values), t.Rows)
	}
	if _, exists := t.Columns[name]; !exists {
		t.Order = append(t.Order, name)
	}
	t.Columns[name] = values
	return nil
}

// Column returns a factor column and whether it exists.
func (t *Table) Column(name core.FactorName) ([]float64, bool) {
	col, ok := t.Columns[name]
	return col, ok
}

// Select returns a new Table restricted to the given row indices, preserving
// column order. Subsetting the table and its Array with the same indices
// keeps the two aligned.
func (t *Table) Select(indices []int) *Table {
	out := NewTable(len(indices))
	out.Order = append([]core.FactorName(nil), t.Order...)
	for name, col := range t.Columns {
		sub := make([]float64, len(indices))
		for i, idx := range indices {
			sub[i] = col[idx]
		}
		out.Columns[name] = sub
	}
	return out
}

// Where returns the row indices for which the column equals value.
// NaN cells never match.
func (t *Table) Where(name core.FactorName, value float64) []int {
	col, ok := t.Columns[name]
	if !ok {
		return nil
	}
	var sel []int
	for i, v := range col {
		if v == value {
			sel = append(sel, i)
		}
	}
	return sel
}

// WhereTrue returns the row indices for which the column is nonzero and finite.
func (t *Table) WhereTrue(name core.FactorName) []int {
	col, ok := t.Columns[name]
	if !ok {
		return nil
	}
	var sel []int
	for i, v := range col {
		if v != 0 && !math.IsNaN(v) {
			sel = append(sel, i)
		}
	}
	return sel
}

// WhereFalse returns the row indices for which the column is exactly zero.
func (t *Table) WhereFalse(name core.FactorName) []int {
	col, ok := t.Columns[name]
	if !ok {
		return nil
	}
	var sel []int
	for i, v := range col {
		if v == 0 {
			sel = append(sel, i)
		}
	}
	return sel
}
