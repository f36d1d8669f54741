package celldiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetdiff/sheetdiff/internal/config"
	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

type pair struct{ old, newer uint32 }

func (p pair) Old() uint32 { return p.old }
func (p pair) New() uint32 { return p.newer }

func setCell(g *grid.Grid, row, col uint32, v string) {
	val := grid.Text(v)
	g.Insert(grid.Cell{Row: row, Col: col, Value: &val})
}

func TestDiffOneRowEmitsCellEditedForSingleChange(t *testing.T) {
	old := grid.New(1, 4)
	newer := grid.New(1, 4)
	for c := uint32(0); c < 4; c++ {
		setCell(old, 0, c, "same")
		setCell(newer, 0, c, "same")
	}
	setCell(newer, 0, 2, "changed")

	pool := stringpool.New()
	sheet := pool.Intern("Sheet1")
	pairs := []RowPairLike{pair{0, 0}}

	rows := DiffMatchedRows(old, newer, sheet, pairs, config.Default())
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Replaced)
	require.Len(t, rows[0].CellEdits, 1)
	assert.Equal(t, uint32(2), rows[0].CellEdits[0].Addr.Col)
}

func TestDiffOneRowCollapsesToRowReplacedWhenDense(t *testing.T) {
	old := grid.New(1, 4)
	newer := grid.New(1, 4)
	for c := uint32(0); c < 4; c++ {
		setCell(old, 0, c, "old")
		setCell(newer, 0, c, "new")
	}

	pool := stringpool.New()
	sheet := pool.Intern("Sheet1")
	pairs := []RowPairLike{pair{0, 0}}

	rows := DiffMatchedRows(old, newer, sheet, pairs, config.Default())
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Replaced)
}

func TestDiffOneRowSkippedWhenIdentical(t *testing.T) {
	old := grid.New(1, 2)
	newer := grid.New(1, 2)
	setCell(old, 0, 0, "x")
	setCell(newer, 0, 0, "x")

	pool := stringpool.New()
	sheet := pool.Intern("Sheet1")
	pairs := []RowPairLike{pair{0, 0}}

	rows := DiffMatchedRows(old, newer, sheet, pairs, config.Default())
	assert.Empty(t, rows)
}

func TestCollapseDenseRowsGroupsAdjacentIntoRectReplaced(t *testing.T) {
	cfg := config.Default()
	cfg.DenseRectReplaceMinRows = 2

	rows := []RowResult{
		{NewRow: 0, Replaced: true, MaxCols: 4},
		{NewRow: 1, Replaced: true, MaxCols: 4},
		{NewRow: 2, Replaced: true, MaxCols: 4},
	}

	ops := CollapseDenseRows(stringpool.ID(0), rows, cfg)
	require.Len(t, ops, 1)
	assert.Equal(t, diffop.KindRectReplaced, ops[0].Kind)
	assert.Equal(t, uint32(3), ops[0].RectRowCount)
}

func TestCollapseDenseRowsKeepsShortRunsAsRowReplaced(t *testing.T) {
	cfg := config.Default()
	cfg.DenseRectReplaceMinRows = 5

	rows := []RowResult{
		{NewRow: 0, Replaced: true, MaxCols: 4},
		{NewRow: 1, Replaced: true, MaxCols: 4},
	}

	ops := CollapseDenseRows(stringpool.ID(0), rows, cfg)
	require.Len(t, ops, 2)
	assert.Equal(t, diffop.KindRowReplaced, ops[0].Kind)
	assert.Equal(t, diffop.KindRowReplaced, ops[1].Kind)
}

func TestCollapseDenseRowsInterleavesCellEditsWithReplacedRows(t *testing.T) {
	cfg := config.Default()
	rows := []RowResult{
		{NewRow: 0, CellEdits: []diffop.DiffOp{{Kind: diffop.KindCellEdited, Addr: grid.Address{Row: 0, Col: 1}}}},
		{NewRow: 1, Replaced: true, MaxCols: 4},
	}
	ops := CollapseDenseRows(stringpool.ID(0), rows, cfg)
	require.Len(t, ops, 2)
	assert.Equal(t, diffop.KindCellEdited, ops[0].Kind)
	assert.Equal(t, diffop.KindRowReplaced, ops[1].Kind)
}
