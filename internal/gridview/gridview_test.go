package gridview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

func numCell(row, col uint32, n float64) grid.Cell {
	v := grid.Number(n)
	return grid.Cell{Row: row, Col: col, Value: &v}
}

func TestLowInfoFlag(t *testing.T) {
	g := grid.New(2, 3)
	g.Insert(numCell(0, 0, 1))
	g.Insert(numCell(0, 1, 2))
	g.Insert(numCell(0, 2, 3))
	g.Insert(numCell(1, 0, 1)) // row 1 has only one non-blank cell

	view := FromGridWithConfig(g, Config{LowInfoThreshold: 1})
	assert.False(t, view.RowMeta[0].LowInfo)
	assert.True(t, view.RowMeta[1].LowInfo)
}

func TestHashStatsUniquenessAndHeavyRepetition(t *testing.T) {
	g1 := grid.New(1, 10)
	g2 := grid.New(1, 10)
	for c := uint32(0); c < 9; c++ {
		g1.Insert(numCell(0, c, 1))
		g2.Insert(numCell(0, c, 1))
	}
	g2.Insert(numCell(0, 9, 42))

	view1 := FromGrid(g1)
	view2 := FromGrid(g2)
	stats := NewHashStats(view1.ColMeta, view2.ColMeta)

	assert.True(t, stats.HeavyRepetition(), "9 identical columns exceeds the repeat threshold")
	assert.True(t, stats.UniqueToB(g2.ColSignature(9)))
	assert.False(t, stats.UniqueToA(g2.ColSignature(9)))
}
