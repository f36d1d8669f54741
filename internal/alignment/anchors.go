package alignment

import (
	"sort"

	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/gridview"
)

// DiscoverAnchorsFromMeta finds candidate anchors: rows not flagged
// low_info whose row signature occurs exactly once on each side. The
// candidates are sorted by OldRow, then NewRow, and may still violate
// dual-monotonicity; callers
// run BuildAnchorChain to extract the monotone skeleton.
func DiscoverAnchorsFromMeta(oldMeta, newMeta []gridview.RowMeta) []Anchor {
	oldFreq := make(map[grid.RowSignature]int)
	oldRowBySig := make(map[grid.RowSignature]uint32)
	for _, m := range oldMeta {
		if m.LowInfo {
			continue
		}
		oldFreq[m.Signature]++
		oldRowBySig[m.Signature] = m.RowIdx
	}

	newFreq := make(map[grid.RowSignature]int)
	newRowBySig := make(map[grid.RowSignature]uint32)
	for _, m := range newMeta {
		if m.LowInfo {
			continue
		}
		newFreq[m.Signature]++
		newRowBySig[m.Signature] = m.RowIdx
	}

	var anchors []Anchor
	for sig, cnt := range oldFreq {
		if cnt != 1 {
			continue
		}
		if newFreq[sig] != 1 {
			continue
		}
		anchors = append(anchors, Anchor{OldRow: oldRowBySig[sig], NewRow: newRowBySig[sig]})
	}

	sort.Slice(anchors, func(i, j int) bool {
		if anchors[i].OldRow != anchors[j].OldRow {
			return anchors[i].OldRow < anchors[j].OldRow
		}
		return anchors[i].NewRow < anchors[j].NewRow
	})
	return anchors
}

// BuildAnchorChain selects the longest strictly increasing (in both
// OldRow and NewRow) subsequence of candidates — dual-monotone longest
// common subsequence. Ties on chain length are broken by preferring the
// chain whose total gap span (sum of |old-new| positional drift between
// consecutive anchors) is smallest, per spec.md §4.3 rule 3.
//
// candidates is assumed sorted by OldRow ascending (DiscoverAnchorsFromMeta
// guarantees this). The DP is the standard patience-sort-free O(n^2) LIS
// variant on NewRow, adequate since anchor counts are bounded by distinct
// row signatures, not raw row counts.
func BuildAnchorChain(candidates []Anchor) []Anchor {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	length := make([]int, n)
	prev := make([]int, n)
	span := make([]uint64, n)

	best := 0
	for i := 0; i < n; i++ {
		length[i] = 1
		prev[i] = -1
		span[i] = 0
		for j := 0; j < i; j++ {
			if candidates[j].OldRow >= candidates[i].OldRow {
				continue
			}
			if candidates[j].NewRow >= candidates[i].NewRow {
				continue
			}
			candLen := length[j] + 1
			candSpan := span[j] + gapSpan(candidates[j], candidates[i])
			if candLen > length[i] || (candLen == length[i] && candSpan < span[i]) {
				length[i] = candLen
				prev[i] = j
				span[i] = candSpan
			}
		}
		if length[i] > length[best] || (length[i] == length[best] && span[i] < span[best]) {
			best = i
		}
	}

	chain := make([]Anchor, 0, length[best])
	for i := best; i != -1; i = prev[i] {
		chain = append(chain, candidates[i])
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

func gapSpan(a, b Anchor) uint64 {
	oldGap := uint64(b.OldRow - a.OldRow)
	newGap := uint64(b.NewRow - a.NewRow)
	if oldGap > newGap {
		return oldGap - newGap
	}
	return newGap - oldGap
}
