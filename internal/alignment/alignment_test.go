package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/gridview"
)

func gridviewFor(t *testing.T, g *grid.Grid) []gridview.RowMeta {
	t.Helper()
	return gridview.FromGrid(g).RowMeta
}

func textRow(g *grid.Grid, row uint32, values ...string) {
	for col, v := range values {
		val := grid.Text(v)
		g.Insert(grid.Cell{Row: row, Col: uint32(col), Value: &val})
	}
}

func TestAlignRowsAMRIdenticalGrids(t *testing.T) {
	old := grid.New(3, 2)
	textRow(old, 0, "a", "1")
	textRow(old, 1, "b", "2")
	textRow(old, 2, "c", "3")

	newer := grid.New(3, 2)
	textRow(newer, 0, "a", "1")
	textRow(newer, 1, "b", "2")
	textRow(newer, 2, "c", "3")

	result, err := AlignRowsAMR(old, newer, config.Default())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Matched, 3)
	assert.Empty(t, result.Inserted)
	assert.Empty(t, result.Deleted)
}

func TestAlignRowsAMRTrailingInsert(t *testing.T) {
	old := grid.New(2, 1)
	textRow(old, 0, "a")
	textRow(old, 1, "a")

	newer := grid.New(4, 1)
	textRow(newer, 0, "a")
	textRow(newer, 1, "a")
	textRow(newer, 2, "a")
	textRow(newer, 3, "a")

	result, err := AlignRowsAMR(old, newer, config.Default())
	require.NoError(t, err)
	assert.Len(t, result.Matched, 2)
	assert.Equal(t, []uint32{2, 3}, result.Inserted)
}

func TestAlignRowsAMRWithAnchorsAndGap(t *testing.T) {
	old := grid.New(4, 1)
	textRow(old, 0, "anchor-one")
	textRow(old, 1, "changed-old")
	textRow(old, 2, "also-changed-old")
	textRow(old, 3, "anchor-two")

	newer := grid.New(4, 1)
	textRow(newer, 0, "anchor-one")
	textRow(newer, 1, "changed-newer")
	textRow(newer, 2, "also-changed-newer")
	textRow(newer, 3, "anchor-two")

	result, err := AlignRowsAMR(old, newer, config.Default())
	require.NoError(t, err)

	assert.Contains(t, result.Matched, RowPair{OldRow: 0, NewRow: 0})
	assert.Contains(t, result.Matched, RowPair{OldRow: 3, NewRow: 3})
}

func TestAlignRowsAMROverBoundsFallsBackToPositional(t *testing.T) {
	cfg := config.Default()
	cfg.MaxAlignRows = 1
	old := grid.New(5, 1)
	newer := grid.New(5, 1)

	result, err := AlignRowsAMR(old, newer, cfg)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAlignRowsAMROverBoundsReturnsErrorPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.MaxAlignRows = 1
	cfg.OnLimitExceeded = config.ReturnError
	old := grid.New(5, 1)
	newer := grid.New(5, 1)

	_, err := AlignRowsAMR(old, newer, cfg)
	assert.Error(t, err)
}

func TestAlignSmallGapFallsBackToPositionalWhenLCSEmptyAndLengthsEqual(t *testing.T) {
	old := grid.New(2, 1)
	textRow(old, 0, "old-1")
	textRow(old, 1, "old-2")
	oldView := gridviewFor(t, old)

	newer := grid.New(2, 1)
	textRow(newer, 0, "newer-1")
	textRow(newer, 1, "newer-2")
	newView := gridviewFor(t, newer)

	result := alignSmallGap(oldView, newView)
	assert.Len(t, result.matched, 2)
	assert.Empty(t, result.inserted)
	assert.Empty(t, result.deleted)
	assert.Equal(t, RowPair{OldRow: 0, NewRow: 0}, result.matched[0])
	assert.Equal(t, RowPair{OldRow: 1, NewRow: 1}, result.matched[1])
}

func TestAlignSmallGapMatchesSharedRowAcrossDeleteAndInsert(t *testing.T) {
	old := grid.New(2, 1)
	textRow(old, 0, "shared")
	textRow(old, 1, "only-old")
	oldView := gridviewFor(t, old)

	newer := grid.New(2, 1)
	textRow(newer, 0, "only-newer")
	textRow(newer, 1, "shared")
	newView := gridviewFor(t, newer)

	result := alignSmallGap(oldView, newView)
	assert.Equal(t, []uint32{1}, result.deleted)
	assert.Equal(t, []uint32{0}, result.inserted)
	assert.Equal(t, []RowPair{{OldRow: 0, NewRow: 1}}, result.matched)
}

func TestMovesFromMatchedPairsFindsConstantOffsetRun(t *testing.T) {
	matched := []RowPair{
		{OldRow: 0, NewRow: 0},
		{OldRow: 1, NewRow: 5},
		{OldRow: 2, NewRow: 6},
		{OldRow: 3, NewRow: 7},
		{OldRow: 4, NewRow: 4},
	}
	moves := MovesFromMatchedPairs(matched, 3)
	require.Len(t, moves, 1)
	assert.Equal(t, RowBlockMove{SrcStartRow: 1, DstStartRow: 5, RowCount: 3}, moves[0])
}

func TestMovesFromMatchedPairsIgnoresShortRuns(t *testing.T) {
	matched := []RowPair{
		{OldRow: 0, NewRow: 2},
		{OldRow: 1, NewRow: 3},
	}
	moves := MovesFromMatchedPairs(matched, 3)
	assert.Empty(t, moves)
}

func TestBuildAnchorChainPicksDualMonotoneSubsequence(t *testing.T) {
	candidates := []Anchor{
		{OldRow: 0, NewRow: 0},
		{OldRow: 1, NewRow: 5},
		{OldRow: 2, NewRow: 1},
		{OldRow: 3, NewRow: 2},
	}
	chain := BuildAnchorChain(candidates)

	for i := 1; i < len(chain); i++ {
		assert.Less(t, chain[i-1].OldRow, chain[i].OldRow)
		assert.Less(t, chain[i-1].NewRow, chain[i].NewRow)
	}
	assert.GreaterOrEqual(t, len(chain), 3)
}
