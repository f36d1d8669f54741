// Package celldiff refines a row alignment into cell-level ops: for
// each matched row pair, diff the populated columns and collapse dense
// changes into RowReplaced/RectReplaced where configured (spec.md §4.7).
package celldiff

import (
	"sort"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// RowResult is the per-row outcome of diffing one matched pair: either a
// set of individual cell edits, or a single dense-replace collapse.
type RowResult struct {
	OldRow       uint32
	NewRow       uint32
	CellEdits    []diffop.DiffOp // Kind == KindCellEdited, sorted by col
	Replaced     bool            // true when CellEdits was collapsed to RowReplaced
	MaxCols      uint32          // columns considered, for RectReplaced grouping
}

// DiffMatchedRows diffs every matched (old_row, new_row) pair and applies
// the row-level dense-replace collapse. Rows with no changes are omitted
// from the result entirely.
func DiffMatchedRows(old, newer *grid.Grid, sheet stringpool.ID, matched []RowPairLike, cfg *config.DiffConfig) []RowResult {
	results := make([]RowResult, 0, len(matched))
	for _, pair := range matched {
		r := diffOneRow(old, newer, sheet, pair.Old(), pair.New(), cfg)
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// RowPairLike lets celldiff accept matched pairs from either alignment
// (row alignment) or dbalign (key alignment) without importing either.
type RowPairLike interface {
	Old() uint32
	New() uint32
}

func diffOneRow(old, newer *grid.Grid, sheet stringpool.ID, oldRow, newRow uint32, cfg *config.DiffConfig) *RowResult {
	cols := grid.PopulatedCols(old, newer, oldRow, newRow)
	if len(cols) == 0 {
		return nil
	}

	var edits []diffop.DiffOp
	for _, col := range cols {
		oldCell := old.Get(oldRow, col)
		newCell := newer.Get(newRow, col)
		if grid.CellsEqual(oldCell, newCell) {
			continue
		}
		edits = append(edits, diffop.DiffOp{
			Kind:  diffop.KindCellEdited,
			Sheet: sheet,
			Addr:  grid.Address{Row: newRow, Col: col},
			From:  snapshotOf(oldCell),
			To:    snapshotOf(newCell),
		})
	}

	if len(edits) == 0 {
		return nil
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].Addr.Col < edits[j].Addr.Col })

	maxCols := old.NCols
	if newer.NCols > maxCols {
		maxCols = newer.NCols
	}

	ratio := float64(len(edits)) / float64(len(cols))
	if ratio >= cfg.DenseRowReplaceRatio && uint32(len(cols)) >= cfg.DenseRowReplaceMinCols {
		return &RowResult{
			OldRow:   oldRow,
			NewRow:   newRow,
			Replaced: true,
			MaxCols:  maxCols,
		}
	}

	return &RowResult{OldRow: oldRow, NewRow: newRow, CellEdits: edits, MaxCols: maxCols}
}

func snapshotOf(c *grid.Cell) *diffop.CellSnapshot {
	if c == nil {
		return &diffop.CellSnapshot{}
	}
	return &diffop.CellSnapshot{Value: c.Value, Formula: c.Formula}
}

// CollapseDenseRows takes the per-row results in ascending NewRow order
// and emits the final op list: individual CellEdited ops for
// non-collapsed rows, RowReplaced for a single dense row, and
// RectReplaced for dense_rect_replace_min_rows or more adjacent
// RowReplaced candidates that share the same column extent.
func CollapseDenseRows(sheet stringpool.ID, rows []RowResult, cfg *config.DiffConfig) []diffop.DiffOp {
	sorted := make([]RowResult, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NewRow < sorted[j].NewRow })

	var ops []diffop.DiffOp
	i := 0
	for i < len(sorted) {
		if !sorted[i].Replaced {
			ops = append(ops, sorted[i].CellEdits...)
			i++
			continue
		}

		j := i + 1
		for j < len(sorted) &&
			sorted[j].Replaced &&
			sorted[j].MaxCols == sorted[i].MaxCols &&
			sorted[j].NewRow == sorted[j-1].NewRow+1 {
			j++
		}

		runLen := uint32(j - i)
		if runLen >= cfg.DenseRectReplaceMinRows {
			ops = append(ops, diffop.DiffOp{
				Kind:         diffop.KindRectReplaced,
				Sheet:        sheet,
				RectStartRow: sorted[i].NewRow,
				RectRowCount: runLen,
				RectStartCol: 0,
				RectColCount: sorted[i].MaxCols,
			})
		} else {
			for k := i; k < j; k++ {
				ops = append(ops, diffop.DiffOp{
					Kind:        diffop.KindRowReplaced,
					Sheet:       sheet,
					ReplacedRow: sorted[k].NewRow,
				})
			}
		}
		i = j
	}
	return ops
}
