// Package columnalign detects the single case where the only structural
// difference between two sheets is one inserted or deleted column:
// everything else stays column-for-column identical. It deliberately
// refuses anything more ambiguous than that, falling through to the
// caller's positional or AMR-equivalent handling (spec.md §4.4).
package columnalign

import (
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/gridview"
)

const (
	maxAlignRows = 2000
	maxAlignCols = 64
)

// ColumnAlignment is the result of a successful single-column-change
// detection.
type ColumnAlignment struct {
	Matched  []ColPair
	Inserted []uint32
	Deleted  []uint32
}

// ColPair is a matched (old_col, new_col) pair.
type ColPair struct {
	OldCol uint32
	NewCol uint32
}

type change int

const (
	changeInsert change = iota
	changeDelete
)

// AlignSingleColumnChange returns a non-nil ColumnAlignment only when old
// and new have the same row count, differ by exactly one column, stay
// within the tight size bounds, and are not dominated by repeated
// content. Any other shape returns nil so the caller falls back to a
// coarser diff strategy.
func AlignSingleColumnChange(old, newer *grid.Grid) *ColumnAlignment {
	if !withinSizeBounds(old, newer) {
		return nil
	}
	if old.NRows != newer.NRows {
		return nil
	}

	colDiff := int64(newer.NCols) - int64(old.NCols)
	if colDiff != 1 && colDiff != -1 {
		return nil
	}

	viewA := gridview.FromGrid(old)
	viewB := gridview.FromGrid(newer)

	stats := gridview.NewHashStats(viewA.ColMeta, viewB.ColMeta)
	if stats.HeavyRepetition() {
		return nil
	}

	if colDiff == 1 {
		return findSingleGapAlignment(viewA.ColMeta, viewB.ColMeta, stats, changeInsert)
	}
	return findSingleGapAlignment(viewA.ColMeta, viewB.ColMeta, stats, changeDelete)
}

func findSingleGapAlignment(colsA, colsB []gridview.ColMeta, stats *gridview.HashStats, ch change) *ColumnAlignment {
	var matched []ColPair
	var inserted, deleted []uint32
	skipped := false

	idxA, idxB := 0, 0
	for idxA < len(colsA) && idxB < len(colsB) {
		metaA, metaB := colsA[idxA], colsB[idxB]

		if metaA.Signature.Equal(metaB.Signature) {
			matched = append(matched, ColPair{OldCol: metaA.ColIdx, NewCol: metaB.ColIdx})
			idxA++
			idxB++
			continue
		}

		if skipped {
			return nil
		}

		switch ch {
		case changeInsert:
			if !stats.UniqueToB(metaB.Signature) {
				return nil
			}
			inserted = append(inserted, metaB.ColIdx)
			idxB++
		case changeDelete:
			if !stats.UniqueToA(metaA.Signature) {
				return nil
			}
			deleted = append(deleted, metaA.ColIdx)
			idxA++
		}
		skipped = true
	}

	if idxA < len(colsA) || idxB < len(colsB) {
		if skipped {
			return nil
		}

		switch {
		case ch == changeInsert && idxA == len(colsA) && len(colsB) == idxB+1:
			metaB := colsB[idxB]
			if !stats.UniqueToB(metaB.Signature) {
				return nil
			}
			inserted = append(inserted, metaB.ColIdx)
		case ch == changeDelete && idxB == len(colsB) && len(colsA) == idxA+1:
			metaA := colsA[idxA]
			if !stats.UniqueToA(metaA.Signature) {
				return nil
			}
			deleted = append(deleted, metaA.ColIdx)
		default:
			return nil
		}
	}

	if len(inserted)+len(deleted) != 1 {
		return nil
	}

	return &ColumnAlignment{Matched: matched, Inserted: inserted, Deleted: deleted}
}

func withinSizeBounds(old, newer *grid.Grid) bool {
	rows := old.NRows
	if newer.NRows > rows {
		rows = newer.NRows
	}
	cols := old.NCols
	if newer.NCols > cols {
		cols = newer.NCols
	}
	return rows <= maxAlignRows && cols <= maxAlignCols
}
