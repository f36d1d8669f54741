package alignment

import (
	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/gridview"
)

// GapStrategy is the classification of one inter-anchor gap (spec.md
// §4.5).
type GapStrategy int

const (
	StrategyEmpty GapStrategy = iota
	StrategyInsertAll
	StrategyDeleteAll
	StrategySmallEdit
	StrategyMoveCandidate
	StrategyRecursiveAlign
)

// SelectGapStrategy classifies a gap given its two row-meta slices.
// hasRecursed signals the recursion bound has already been reached, in
// which case RecursiveAlign is never selected (callers fall through to
// SmallEdit instead).
func SelectGapStrategy(oldSlice, newSlice []gridview.RowMeta, cfg *config.DiffConfig, hasRecursed bool) GapStrategy {
	m, n := len(oldSlice), len(newSlice)

	if m == 0 && n == 0 {
		return StrategyEmpty
	}
	if m == 0 {
		return StrategyInsertAll
	}
	if n == 0 {
		return StrategyDeleteAll
	}

	total := m + n
	if total <= int(cfg.SmallGapThreshold) || hasRecursed {
		if cfg.EnableFuzzyMoves && looksLikeReorder(oldSlice, newSlice, cfg.MinMoveSize) {
			return StrategyMoveCandidate
		}
		return StrategySmallEdit
	}

	if !hasRecursed && hasCandidateAnchor(oldSlice) && hasCandidateAnchor(newSlice) {
		return StrategyRecursiveAlign
	}

	if cfg.EnableFuzzyMoves && looksLikeReorder(oldSlice, newSlice, cfg.MinMoveSize) {
		return StrategyMoveCandidate
	}
	return StrategySmallEdit
}

func hasCandidateAnchor(meta []gridview.RowMeta) bool {
	for _, m := range meta {
		if !m.LowInfo {
			return true
		}
	}
	return false
}

// looksLikeReorder is a cheap pre-filter: the two slices are worth
// treating as a possible block move only when they are both at least
// minMoveSize long and their non-low-info signature multisets overlap
// (i.e. this isn't simply a wholesale content replacement).
func looksLikeReorder(oldSlice, newSlice []gridview.RowMeta, minMoveSize uint32) bool {
	if uint32(len(oldSlice)) < minMoveSize || uint32(len(newSlice)) < minMoveSize {
		return false
	}

	newSigs := make(map[any]struct{}, len(newSlice))
	for _, m := range newSlice {
		if m.LowInfo {
			continue
		}
		newSigs[m.Signature] = struct{}{}
	}

	overlap := 0
	for _, m := range oldSlice {
		if m.LowInfo {
			continue
		}
		if _, ok := newSigs[m.Signature]; ok {
			overlap++
		}
	}
	return overlap > 0
}
