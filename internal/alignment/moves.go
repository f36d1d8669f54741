package alignment

import "github.com/sheetdiff/sheetdiff/internal/gridview"

// MovesFromMatchedPairs scans matched for maximal runs of consecutive
// old rows whose new_row = old_row + delta for a single nonzero delta,
// each run at least minMoveSize old rows long (spec.md §4.6, exact
// row-block move). matched is assumed sorted by OldRow ascending.
func MovesFromMatchedPairs(matched []RowPair, minMoveSize uint32) []RowBlockMove {
	var moves []RowBlockMove
	i := 0
	for i < len(matched) {
		delta := int64(matched[i].NewRow) - int64(matched[i].OldRow)
		if delta == 0 {
			i++
			continue
		}

		j := i + 1
		for j < len(matched) &&
			matched[j].OldRow == matched[j-1].OldRow+1 &&
			int64(matched[j].NewRow)-int64(matched[j].OldRow) == delta {
			j++
		}

		runLen := uint32(j - i)
		if runLen >= minMoveSize {
			moves = append(moves, RowBlockMove{
				SrcStartRow: matched[i].OldRow,
				DstStartRow: matched[i].NewRow,
				RowCount:    runLen,
			})
		}
		i = j
	}
	return moves
}

// FindBlockMove looks for a single contiguous block of old-side rows,
// at least minMoveSize long, whose signature sequence appears exactly
// once in each slice but at a different position — the "one moved block
// amid otherwise-unrelated surrounding rows" case a plain LCS cannot
// express as a match because the block's content is unique elsewhere in
// both slices (spec.md §4.5 MoveCandidate).
func FindBlockMove(oldSlice, newSlice []gridview.RowMeta, minMoveSize uint32) *RowBlockMove {
	m, n := len(oldSlice), len(newSlice)
	maxLen := uint32(m)
	if uint32(n) < maxLen {
		maxLen = uint32(n)
	}
	if maxLen < minMoveSize {
		return nil
	}

	for length := maxLen; length >= minMoveSize; length-- {
		for start := 0; start+int(length) <= m; start++ {
			oldBlock := oldSlice[start : start+int(length)]
			if findUniqueOccurrence(oldSlice, oldBlock) != start {
				continue
			}
			pos := findUniqueOccurrence(newSlice, oldBlock)
			if pos < 0 {
				continue
			}
			srcStart := oldSlice[start].RowIdx
			if uint32(pos) == uint32(start) {
				continue // same position: not actually a move
			}
			return &RowBlockMove{
				SrcStartRow: srcStart,
				DstStartRow: newSlice[pos].RowIdx,
				RowCount:    length,
			}
		}
	}
	return nil
}

// findUniqueOccurrence returns the start index of block's signature
// sequence within haystack if it occurs there exactly once, or -1
// otherwise (zero or multiple occurrences are both ambiguous).
func findUniqueOccurrence(haystack []gridview.RowMeta, block []gridview.RowMeta) int {
	found := -1
	for start := 0; start+len(block) <= len(haystack); start++ {
		if !signaturesEqual(haystack[start:start+len(block)], block) {
			continue
		}
		if found != -1 {
			return -1
		}
		found = start
	}
	return found
}

func signaturesEqual(a, b []gridview.RowMeta) bool {
	for i := range a {
		if !a[i].Signature.Equal(b[i].Signature) {
			return false
		}
	}
	return true
}
