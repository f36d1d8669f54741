package alignment

import (
	"fmt"
	"sort"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/gridview"
)

// AlignRowsAMR runs the full Anchor-based Multi-scale Recursion row
// alignment between old and new. Returns (nil, nil) when the grids
// exceed config's alignment bounds and on_limit_exceeded is
// FallbackToPositional, signaling the caller to use a positional diff
// instead (spec.md §4.3).
func AlignRowsAMR(old, newer *grid.Grid, cfg *config.DiffConfig) (*RowAlignment, error) {
	maxRows := old.NRows
	if newer.NRows > maxRows {
		maxRows = newer.NRows
	}
	maxCols := old.NCols
	if newer.NCols > maxCols {
		maxCols = newer.NCols
	}

	if maxRows > cfg.MaxAlignRows || maxCols > cfg.MaxAlignCols {
		switch cfg.OnLimitExceeded {
		case config.FallbackToPositional:
			return nil, nil
		case config.ReturnPartialResult:
			return &RowAlignment{}, nil
		case config.ReturnError:
			return nil, fmt.Errorf("alignment: limits exceeded (rows=%d, cols=%d)", maxRows, maxCols)
		default:
			return nil, fmt.Errorf("alignment: unrecognized on_limit_exceeded %q", cfg.OnLimitExceeded)
		}
	}

	viewA := gridview.FromGridWithConfig(old, gridview.Config{LowInfoThreshold: cfg.LowInfoThreshold})
	viewB := gridview.FromGridWithConfig(newer, gridview.Config{LowInfoThreshold: cfg.LowInfoThreshold})

	if fast := fastPathEqualRuns(viewA.RowMeta, viewB.RowMeta); fast != nil {
		return fast, nil
	}

	anchors := BuildAnchorChain(DiscoverAnchorsFromMeta(viewA.RowMeta, viewB.RowMeta))
	alignment := assembleFromMeta(viewA.RowMeta, viewB.RowMeta, anchors, cfg, 0)
	return &alignment, nil
}

// fastPathEqualRuns handles the common case where both sides are a
// single run of identical rows with the same signature: no anchor
// discovery needed, a straight positional zip plus a trailing
// insert/delete block suffices.
func fastPathEqualRuns(oldMeta, newMeta []gridview.RowMeta) *RowAlignment {
	runsA := CompressToRuns(oldMeta)
	runsB := CompressToRuns(newMeta)
	if len(runsA) != 1 || len(runsB) != 1 {
		return nil
	}
	if !runsA[0].Meta.Signature.Equal(runsB[0].Meta.Signature) {
		return nil
	}

	shared := runsA[0].Count
	if runsB[0].Count < shared {
		shared = runsB[0].Count
	}

	matched := make([]RowPair, 0, shared)
	for offset := uint32(0); offset < shared; offset++ {
		matched = append(matched, RowPair{
			OldRow: runsA[0].StartRow + offset,
			NewRow: runsB[0].StartRow + offset,
		})
	}

	var inserted []uint32
	if runsB[0].Count > shared {
		for r := runsB[0].StartRow + shared; r < runsB[0].StartRow+runsB[0].Count; r++ {
			inserted = append(inserted, r)
		}
	}

	var deleted []uint32
	if runsA[0].Count > shared {
		for r := runsA[0].StartRow + shared; r < runsA[0].StartRow+runsA[0].Count; r++ {
			deleted = append(deleted, r)
		}
	}

	return &RowAlignment{Matched: matched, Inserted: inserted, Deleted: deleted}
}

type gapResult struct {
	matched  []RowPair
	inserted []uint32
	deleted  []uint32
	moves    []RowBlockMove
}

func assembleFromMeta(oldMeta, newMeta []gridview.RowMeta, anchors []Anchor, cfg *config.DiffConfig, depth uint32) RowAlignment {
	if len(oldMeta) == 0 && len(newMeta) == 0 {
		return RowAlignment{}
	}

	var matched []RowPair
	var inserted, deleted []uint32
	var moves []RowBlockMove

	prevOld := firstRowIdx(oldMeta)
	prevNew := firstRowIdx(newMeta)

	for _, anchor := range anchors {
		gap := fillGap(prevOld, anchor.OldRow, prevNew, anchor.NewRow, oldMeta, newMeta, cfg, depth)
		matched = append(matched, gap.matched...)
		inserted = append(inserted, gap.inserted...)
		deleted = append(deleted, gap.deleted...)
		moves = append(moves, gap.moves...)

		matched = append(matched, RowPair{OldRow: anchor.OldRow, NewRow: anchor.NewRow})
		prevOld = anchor.OldRow + 1
		prevNew = anchor.NewRow + 1
	}

	oldEnd := prevOld
	if len(oldMeta) > 0 {
		oldEnd = oldMeta[len(oldMeta)-1].RowIdx + 1
	}
	newEnd := prevNew
	if len(newMeta) > 0 {
		newEnd = newMeta[len(newMeta)-1].RowIdx + 1
	}

	tail := fillGap(prevOld, oldEnd, prevNew, newEnd, oldMeta, newMeta, cfg, depth)
	matched = append(matched, tail.matched...)
	inserted = append(inserted, tail.inserted...)
	deleted = append(deleted, tail.deleted...)
	moves = append(moves, tail.moves...)

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OldRow != matched[j].OldRow {
			return matched[i].OldRow < matched[j].OldRow
		}
		return matched[i].NewRow < matched[j].NewRow
	})
	sort.Slice(inserted, func(i, j int) bool { return inserted[i] < inserted[j] })
	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })
	sort.Slice(moves, func(i, j int) bool {
		if moves[i].SrcStartRow != moves[j].SrcStartRow {
			return moves[i].SrcStartRow < moves[j].SrcStartRow
		}
		if moves[i].DstStartRow != moves[j].DstStartRow {
			return moves[i].DstStartRow < moves[j].DstStartRow
		}
		return moves[i].RowCount < moves[j].RowCount
	})

	return RowAlignment{Matched: matched, Inserted: inserted, Deleted: deleted, Moves: moves}
}

func firstRowIdx(meta []gridview.RowMeta) uint32 {
	if len(meta) == 0 {
		return 0
	}
	return meta[0].RowIdx
}

func fillGap(oldStart, oldEnd, newStart, newEnd uint32, oldMeta, newMeta []gridview.RowMeta, cfg *config.DiffConfig, depth uint32) gapResult {
	oldSlice := sliceByRange(oldMeta, oldStart, oldEnd)
	newSlice := sliceByRange(newMeta, newStart, newEnd)
	hasRecursed := depth >= cfg.MaxRecursionDepth
	strategy := SelectGapStrategy(oldSlice, newSlice, cfg, hasRecursed)

	switch strategy {
	case StrategyEmpty:
		return gapResult{}

	case StrategyInsertAll:
		ids := make([]uint32, 0, newEnd-newStart)
		for r := newStart; r < newEnd; r++ {
			ids = append(ids, r)
		}
		return gapResult{inserted: ids}

	case StrategyDeleteAll:
		ids := make([]uint32, 0, oldEnd-oldStart)
		for r := oldStart; r < oldEnd; r++ {
			ids = append(ids, r)
		}
		return gapResult{deleted: ids}

	case StrategySmallEdit:
		return alignSmallGap(oldSlice, newSlice)

	case StrategyMoveCandidate:
		result := alignSmallGap(oldSlice, newSlice)
		detected := MovesFromMatchedPairs(result.matched, cfg.MinMoveSize)
		if len(detected) == 0 {
			if mv := FindBlockMove(oldSlice, newSlice, cfg.MinMoveSize); mv != nil {
				detected = append(detected, *mv)
			}
		}
		result.moves = append(result.moves, detected...)
		return result

	case StrategyRecursiveAlign:
		if depth >= cfg.MaxRecursionDepth {
			return alignSmallGap(oldSlice, newSlice)
		}
		anchors := BuildAnchorChain(DiscoverAnchorsFromMeta(oldSlice, newSlice))
		alignment := assembleFromMeta(oldSlice, newSlice, anchors, cfg, depth+1)
		return gapResult{
			matched:  alignment.Matched,
			inserted: alignment.Inserted,
			deleted:  alignment.Deleted,
			moves:    alignment.Moves,
		}

	default:
		return gapResult{}
	}
}

// sliceByRange returns the subslice of meta covering row indices
// [start, end). meta is assumed contiguous and sorted by RowIdx, which
// FromGridWithConfig guarantees.
func sliceByRange(meta []gridview.RowMeta, start, end uint32) []gridview.RowMeta {
	if len(meta) == 0 || start >= end {
		return nil
	}
	base := meta[0].RowIdx
	if start < base {
		return nil
	}
	startIdx := int(start - base)
	if startIdx >= len(meta) {
		return nil
	}
	endIdx := startIdx + int(end-start)
	if endIdx > len(meta) {
		endIdx = len(meta)
	}
	return meta[startIdx:endIdx]
}

// alignSmallGap runs a standard LCS-over-signatures DP and reconstructs
// the alignment by taking deletes before inserts on ties. If the LCS
// matches nothing but both slices have identical length, it falls back
// to a positional pairing — per spec.md §4.5, this prevents needless
// insert/delete churn when every row in the gap changed simultaneously.
// This fallback is load-bearing: do not remove it.
func alignSmallGap(oldSlice, newSlice []gridview.RowMeta) gapResult {
	m, n := len(oldSlice), len(newSlice)
	if m == 0 && n == 0 {
		return gapResult{}
	}

	dp := make([][]uint32, m+1)
	for i := range dp {
		dp[i] = make([]uint32, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if oldSlice[i].Signature.Equal(newSlice[j].Signature) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var matched []RowPair
	var inserted, deleted []uint32

	i, j := 0, 0
	for i < m && j < n {
		if oldSlice[i].Signature.Equal(newSlice[j].Signature) {
			matched = append(matched, RowPair{OldRow: oldSlice[i].RowIdx, NewRow: newSlice[j].RowIdx})
			i++
			j++
		} else if dp[i+1][j] >= dp[i][j+1] {
			deleted = append(deleted, oldSlice[i].RowIdx)
			i++
		} else {
			inserted = append(inserted, newSlice[j].RowIdx)
			j++
		}
	}
	for ; i < m; i++ {
		deleted = append(deleted, oldSlice[i].RowIdx)
	}
	for ; j < n; j++ {
		inserted = append(inserted, newSlice[j].RowIdx)
	}

	if len(matched) == 0 && m == n {
		matched = make([]RowPair, 0, m)
		for k := 0; k < m; k++ {
			matched = append(matched, RowPair{OldRow: oldSlice[k].RowIdx, NewRow: newSlice[k].RowIdx})
		}
		inserted = nil
		deleted = nil
	}

	return gapResult{matched: matched, inserted: inserted, deleted: deleted}
}
