// Package excel exports group-level summary tables to .xlsx workbooks: one
// sheet per analysis, one row per time-of-interest window, one column per
// factor level plus the level spread and the regression coefficient.
package excel

import (
	"fmt"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"godecode/adapters/stats"
	"godecode/domain/analysis"
	"godecode/domain/core"
	"godecode/domain/decoding"
)

// SummaryWriter accumulates analysis sheets into one workbook.
type SummaryWriter struct {
	file  *excelize.File
	first bool
}

// NewSummaryWriter creates an empty workbook.
func NewSummaryWriter() *SummaryWriter {
	return &SummaryWriter{file: excelize.NewFile(), first: true}
}

// AddAnalysis writes one analysis sheet from its TOI scores. Each factor gets
// a block of rows: a header with the level values, then one row per window
// with the group summary of the level subscores, the per-subject max-min
// level spread, and the regression coefficient.
func (w *SummaryWriter) AddAnalysis(name core.AnalysisName, scores *decoding.TOIScores, tois []analysis.TOI, chance float64) error {
	sheet := sheetName(string(name))
	if w.first {
		if err := w.file.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
		w.first = false
	} else if _, err := w.file.NewSheet(sheet); err != nil {
		return err
	}

	names := make([]string, 0, len(scores.Factors))
	for fname := range scores.Factors {
		names = append(names, fname)
	}
	sort.Strings(names)

	row := 1
	for _, fname := range names {
		ft := scores.Factors[fname]
		if err := w.setCell(sheet, 1, row, fname); err != nil {
			return err
		}
		row++

		header := []any{"TOI"}
		for _, level := range ft.Levels {
			header = append(header, fmt.Sprintf("level %g", level))
		}
		header = append(header, "max-min", "R")
		for c, v := range header {
			if err := w.setCell(sheet, c+1, row, v); err != nil {
				return err
			}
		}
		row++

		for wi, toi := range tois {
			if err := w.setCell(sheet, 1, row, toi.String()); err != nil {
				return err
			}
			for li := range ft.Levels {
				col := make([]float64, len(ft.Scores))
				for si := range ft.Scores {
					col[si] = ft.Scores[si][wi][li]
				}
				if err := w.setCell(sheet, li+2, row, stats.QuickStats(col, chance)); err != nil {
					return err
				}
			}

			spread := make([]float64, len(ft.Scores))
			for si := range ft.Scores {
				spread[si] = levelSpread(ft.Scores[si][wi])
			}
			if err := w.setCell(sheet, len(ft.Levels)+2, row, stats.QuickStats(spread, 0)); err != nil {
				return err
			}

			rCol := make([]float64, len(ft.R))
			for si := range ft.R {
				rCol[si] = ft.R[si][wi]
			}
			if err := w.setCell(sheet, len(ft.Levels)+3, row, stats.QuickStats(rCol, 0)); err != nil {
				return err
			}
			row++
		}
		row++ // blank row between factor blocks
	}
	return nil
}

// Save writes the workbook to disk.
func (w *SummaryWriter) Save(path string) error {
	return w.file.SaveAs(path)
}

func (w *SummaryWriter) setCell(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellValue(sheet, cell, value)
}

// levelSpread is one subject's max minus min finite level score; NaN when
// fewer than two levels are defined.
func levelSpread(levels []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range levels {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return hi - lo
}

// sheetName truncates to the xlsx 31-character sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
