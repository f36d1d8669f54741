// Package gridview builds the per-row/per-column derived metadata that
// the alignment stages consume: signatures, non-blank counts, and the
// low_info flag that keeps sparse rows out of the anchor pool.
package gridview

import (
	"github.com/sheetdiff/sheetdiff/internal/grid"
)

// RowMeta is the derived state of a single row. Alignment code slices
// RowMeta by index range (base offset + length) rather than copying, per
// the borrowed-slice convention in spec.md §9.
type RowMeta struct {
	RowIdx        uint32
	Signature     grid.RowSignature
	NonBlankCount uint32
	FirstNonBlank uint32 // valid only when NonBlankCount > 0
	LowInfo       bool
}

// ColMeta is the symmetric derived state of a single column.
type ColMeta struct {
	ColIdx        uint32
	Signature     grid.ColSignature
	NonBlankCount uint32
	FirstNonBlank uint32
	LowInfo       bool
}

// GridView holds the built RowMeta/ColMeta slices for one side of a diff.
// It is ephemeral per sheet-pair and never mutates the underlying Grid.
type GridView struct {
	RowMeta []RowMeta
	ColMeta []ColMeta
}

// Config is the subset of diff configuration GridView construction needs.
// Kept narrow so gridview does not import the full config package.
type Config struct {
	LowInfoThreshold uint32
}

// FromGrid builds a GridView using the default low_info_threshold (0).
func FromGrid(g *grid.Grid) *GridView {
	return FromGridWithConfig(g, Config{LowInfoThreshold: 0})
}

// FromGridWithConfig builds row and column metadata for g, computing and
// caching signatures on g as a side effect.
func FromGridWithConfig(g *grid.Grid, cfg Config) *GridView {
	g.ComputeAllSignatures()

	rowMeta := make([]RowMeta, g.NRows)
	for r := uint32(0); r < g.NRows; r++ {
		cells := g.RowCells(r)
		count, first := countAndFirst(cells, func(c grid.Cell) uint32 { return c.Col })
		rowMeta[r] = RowMeta{
			RowIdx:        r,
			Signature:     g.RowSignature(r),
			NonBlankCount: count,
			FirstNonBlank: first,
			LowInfo:       count <= cfg.LowInfoThreshold,
		}
	}

	colMeta := make([]ColMeta, g.NCols)
	for c := uint32(0); c < g.NCols; c++ {
		cells := g.ColCells(c)
		count, first := countAndFirst(cells, func(c grid.Cell) uint32 { return c.Row })
		colMeta[c] = ColMeta{
			ColIdx:        c,
			Signature:     g.ColSignature(c),
			NonBlankCount: count,
			FirstNonBlank: first,
			LowInfo:       count <= cfg.LowInfoThreshold,
		}
	}

	return &GridView{RowMeta: rowMeta, ColMeta: colMeta}
}

func countAndFirst(cells []grid.Cell, index func(grid.Cell) uint32) (count uint32, first uint32) {
	count = uint32(len(cells))
	if count == 0 {
		return 0, 0
	}
	first = index(cells[0])
	for _, c := range cells[1:] {
		if idx := index(c); idx < first {
			first = idx
		}
	}
	return count, first
}

// HashStats records, for a slice of ColMeta from each side, how many
// times each signature occurs on side A and side B. Used to gate the
// column-alignment and move-detection heuristics when content is too
// repetitive to align unambiguously (spec.md §4.2).
type HashStats struct {
	FreqA map[grid.ColSignature]int
	FreqB map[grid.ColSignature]int
}

const heavyRepetitionThreshold = 8

// NewHashStats builds frequency tables from two ColMeta slices.
func NewHashStats(colsA, colsB []ColMeta) *HashStats {
	stats := &HashStats{
		FreqA: make(map[grid.ColSignature]int, len(colsA)),
		FreqB: make(map[grid.ColSignature]int, len(colsB)),
	}
	for _, c := range colsA {
		stats.FreqA[c.Signature]++
	}
	for _, c := range colsB {
		stats.FreqB[c.Signature]++
	}
	return stats
}

// UniqueToB reports whether a signature appears nowhere in A and exactly
// once in B.
func (s *HashStats) UniqueToB(h grid.ColSignature) bool {
	return s.FreqA[h] == 0 && s.FreqB[h] == 1
}

// UniqueToA reports whether a signature appears exactly once in A and
// nowhere in B.
func (s *HashStats) UniqueToA(h grid.ColSignature) bool {
	return s.FreqA[h] == 1 && s.FreqB[h] == 0
}

// HeavyRepetition reports whether any signature repeats more than the
// threshold on either side, which disqualifies the column-change and
// move heuristics from running (they would produce ambiguous results).
func (s *HashStats) HeavyRepetition() bool {
	max := 0
	for _, n := range s.FreqA {
		if n > max {
			max = n
		}
	}
	for _, n := range s.FreqB {
		if n > max {
			max = n
		}
	}
	return max > heavyRepetitionThreshold
}
