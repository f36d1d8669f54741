// Package engine ties the alignment, column-alignment, move-detection,
// and cell-diff stages together into the per-sheet and per-workbook
// diff operations exposed by spec.md §6: open/diff/diff_streaming/
// diff_database_mode. Grounded on the pipeline wiring in
// original_source/core/src/engine/sheet_diff.rs.
package engine

import (
	"sort"

	"github.com/sheetdiff/sheetdiff/internal/alignment"
	"github.com/sheetdiff/sheetdiff/internal/celldiff"
	"github.com/sheetdiff/sheetdiff/internal/columnalign"
	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/hardening"
	"github.com/sheetdiff/sheetdiff/internal/metrics"
	"github.com/sheetdiff/sheetdiff/internal/sink"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// DiffSheet compares old against new (one named sheet on each side) and
// emits the resulting ops through s. It does not call s.Begin/s.Finish;
// the caller (workbook orchestrator or a single-sheet convenience
// wrapper) owns the sink lifecycle so multiple sheets can share one
// stream. mc is nil unless the caller's config.DiffConfig set
// CollectMetrics; every mc use below is nil-checked so the
// instrumentation costs nothing when it's off.
func DiffSheet(old, newer *grid.Grid, sheetName stringpool.ID, cfg *config.DiffConfig, ctrl *hardening.Controller, s sink.DiffSink, warnings *[]string, mc *metrics.Collector) error {
	ctrl.Progress("row_alignment", 0)

	if mc != nil {
		mc.StartPhase(metrics.PhaseAlignment)
	}
	rowAlignment, err := alignment.AlignRowsAMR(old, newer, cfg)
	if mc != nil {
		mc.EndPhase(metrics.PhaseAlignment)
		mc.AddRowsProcessed(uint64(old.NRows) + uint64(newer.NRows))
	}
	if err != nil {
		return diffop.WrapSinkError(err)
	}

	var ops []diffop.DiffOp

	if rowAlignment == nil {
		ops = append(ops, positionalRowDiff(old, newer, sheetName, cfg)...)
	} else {
		if mc != nil {
			// Move detection runs inside AlignRowsAMR rather than as a
			// separate call, so only its count (not a standalone
			// duration) is attributed here; its time is part of
			// PhaseAlignment above.
			mc.AddAnchorsFound(uint64(len(rowAlignment.Matched)))
			mc.AddMovesDetected(uint64(len(rowAlignment.Moves)))
		}

		ops = append(ops, rowStructuralOps(sheetName, rowAlignment)...)

		colOps, matchedPairs := columnOps(old, newer, sheetName, cfg, rowAlignment)
		ops = append(ops, colOps...)

		ctrl.Progress("cell_diff", 0.5)
		if mc != nil {
			mc.StartPhase(metrics.PhaseCellDiff)
		}
		cellOps := diffMatchedRows(old, newer, sheetName, matchedPairs, cfg)
		if mc != nil {
			mc.EndPhase(metrics.PhaseCellDiff)
			cols := old.NCols
			if newer.NCols > cols {
				cols = newer.NCols
			}
			mc.AddCellsCompared(uint64(len(matchedPairs)) * uint64(cols))
		}
		ops = append(ops, cellOps...)
	}

	ctrl.Progress("cell_diff", 1)

	sort.SliceStable(ops, func(i, j int) bool { return keyLess(opOrderKey(ops[i]), opOrderKey(ops[j])) })

	for _, op := range ops {
		if ctrl.CheckTimeout(warnings) {
			return nil
		}
		if err := s.Emit(op); err != nil {
			return diffop.WrapSinkError(err)
		}
	}
	return nil
}

// rowStructuralOps renders a RowAlignment's inserted/deleted/moved rows
// as ops. Matched pairs are not rendered here; celldiff handles them.
func rowStructuralOps(sheet stringpool.ID, a *alignment.RowAlignment) []diffop.DiffOp {
	ops := make([]diffop.DiffOp, 0, len(a.Inserted)+len(a.Deleted)+len(a.Moves))
	for _, r := range a.Inserted {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowAdded, Sheet: sheet, RowIdx: r})
	}
	for _, r := range a.Deleted {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowRemoved, Sheet: sheet, RowIdx: r})
	}
	for _, m := range a.Moves {
		ops = append(ops, diffop.DiffOp{
			Kind:        diffop.KindBlockMovedRows,
			Sheet:       sheet,
			SrcStartRow: m.SrcStartRow,
			DstStartRow: m.DstStartRow,
			RowCount:    m.RowCount,
		})
	}
	return ops
}

// columnOps runs the single column-insert/delete detector and, when it
// fires, emits ColumnAdded/ColumnRemoved. It returns the matched row
// pairs cell-diff should actually walk: the rows alignment matched,
// regardless of whether a column changed (column shape does not gate
// row-level cell comparison — PopulatedCols unions both sides already).
func columnOps(old, newer *grid.Grid, sheet stringpool.ID, cfg *config.DiffConfig, rowAlignment *alignment.RowAlignment) ([]diffop.DiffOp, []celldiff.RowPairLike) {
	var ops []diffop.DiffOp

	if colAlignment := columnalign.AlignSingleColumnChange(old, newer); colAlignment != nil {
		for _, c := range colAlignment.Inserted {
			ops = append(ops, diffop.DiffOp{Kind: diffop.KindColumnAdded, Sheet: sheet, ColIdx: c})
		}
		for _, c := range colAlignment.Deleted {
			ops = append(ops, diffop.DiffOp{Kind: diffop.KindColumnRemoved, Sheet: sheet, ColIdx: c})
		}
	}

	pairs := make([]celldiff.RowPairLike, len(rowAlignment.Matched))
	for i, p := range rowAlignment.Matched {
		pairs[i] = p
	}
	return ops, pairs
}

func diffMatchedRows(old, newer *grid.Grid, sheet stringpool.ID, pairs []celldiff.RowPairLike, cfg *config.DiffConfig) []diffop.DiffOp {
	rowResults := celldiff.DiffMatchedRows(old, newer, sheet, pairs, cfg)
	return celldiff.CollapseDenseRows(sheet, rowResults, cfg)
}

// positionalRowDiff is the fallback used when AlignRowsAMR declines to
// run (grid exceeds configured size bounds and on_limit_exceeded is
// FallbackToPositional): rows are paired by index with no alignment at
// all, tail rows become pure insert/delete.
func positionalRowDiff(old, newer *grid.Grid, sheet stringpool.ID, cfg *config.DiffConfig) []diffop.DiffOp {
	shared := old.NRows
	if newer.NRows < shared {
		shared = newer.NRows
	}

	pairs := make([]celldiff.RowPairLike, 0, shared)
	for r := uint32(0); r < shared; r++ {
		pairs = append(pairs, positionalPair{row: r})
	}

	ops := diffMatchedRows(old, newer, sheet, pairs, cfg)

	for r := shared; r < newer.NRows; r++ {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowAdded, Sheet: sheet, RowIdx: r})
	}
	for r := shared; r < old.NRows; r++ {
		ops = append(ops, diffop.DiffOp{Kind: diffop.KindRowRemoved, Sheet: sheet, RowIdx: r})
	}
	return ops
}

type positionalPair struct{ row uint32 }

func (p positionalPair) Old() uint32 { return p.row }
func (p positionalPair) New() uint32 { return p.row }

// opOrderKey renders the emission-order key from spec.md §4.7: row ops
// by row_idx ascending, then column ops by col_idx ascending, then cell
// edits by (new_row, col) ascending, then block moves last, ordered by
// their destination's first row.
func opOrderKey(op diffop.DiffOp) [3]uint64 {
	switch op.Kind {
	case diffop.KindRowAdded, diffop.KindRowRemoved, diffop.KindRowReplaced:
		row := op.RowIdx
		if op.Kind == diffop.KindRowReplaced {
			row = op.ReplacedRow
		}
		return [3]uint64{0, uint64(row), 0}
	case diffop.KindColumnAdded, diffop.KindColumnRemoved:
		return [3]uint64{1, uint64(op.ColIdx), 0}
	case diffop.KindCellEdited:
		return [3]uint64{2, uint64(op.Addr.Row), uint64(op.Addr.Col)}
	case diffop.KindRectReplaced:
		return [3]uint64{2, uint64(op.RectStartRow), 0}
	case diffop.KindBlockMovedRows:
		return [3]uint64{3, uint64(op.DstStartRow), 0}
	case diffop.KindBlockMovedColumns:
		return [3]uint64{3, uint64(op.DstStartCol), 0}
	case diffop.KindBlockMovedRect:
		return [3]uint64{3, uint64(op.DstStartRow), uint64(op.DstStartCol)}
	default:
		return [3]uint64{4, 0, 0}
	}
}

// keyLess compares two opOrderKey results lexicographically. Go does not
// define an ordering on array values, only equality, so this walks the
// components by hand.
func keyLess(a, b [3]uint64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
