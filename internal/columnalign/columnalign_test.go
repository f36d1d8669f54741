package columnalign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

func gridFromNumbers(rows [][]int) *grid.Grid {
	nrows := uint32(len(rows))
	var ncols uint32
	if nrows > 0 {
		ncols = uint32(len(rows[0]))
	}
	g := grid.New(nrows, ncols)
	for r, row := range rows {
		for c, v := range row {
			val := grid.Number(float64(v))
			g.Insert(grid.Cell{Row: uint32(r), Col: uint32(c), Value: &val})
		}
	}
	return g
}

func insertColumn(rows [][]int, at, base int) [][]int {
	out := make([][]int, len(rows))
	for i, row := range rows {
		newRow := make([]int, 0, len(row)+1)
		newRow = append(newRow, row[:at]...)
		newRow = append(newRow, base+100+i)
		newRow = append(newRow, row[at:]...)
		out[i] = newRow
	}
	return out
}

func TestSingleInsertAlignsAllColumns(t *testing.T) {
	base := [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	gridA := gridFromNumbers(base)
	gridB := gridFromNumbers(insertColumn(base, 2, 0))

	alignment := AlignSingleColumnChange(gridA, gridB)
	require.NotNil(t, alignment)

	assert.Equal(t, []uint32{2}, alignment.Inserted)
	assert.Empty(t, alignment.Deleted)
	require.Len(t, alignment.Matched, 4)
	assert.Equal(t, ColPair{OldCol: 0, NewCol: 0}, alignment.Matched[0])
	assert.Equal(t, ColPair{OldCol: 1, NewCol: 1}, alignment.Matched[1])
	assert.Equal(t, ColPair{OldCol: 2, NewCol: 3}, alignment.Matched[2])
	assert.Equal(t, ColPair{OldCol: 3, NewCol: 4}, alignment.Matched[3])
}

func TestMultipleUniqueColumnsCausesBailout(t *testing.T) {
	base := [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	gridA := gridFromNumbers(base)

	rowsB := insertColumn(base, 1, 0)
	rowsB[1][3] = 999 // also change an existing column's content

	gridB := gridFromNumbers(rowsB)
	assert.Nil(t, AlignSingleColumnChange(gridA, gridB))
}

func TestHeavyRepetitionCausesBailout(t *testing.T) {
	repetitiveCols := 9
	rows := 3

	valuesA := make([][]int, rows)
	for r := range valuesA {
		row := make([]int, repetitiveCols)
		for c := range row {
			row[c] = 1
		}
		valuesA[r] = row
	}
	gridA := gridFromNumbers(valuesA)

	valuesB := make([][]int, rows)
	for r := range valuesB {
		row := make([]int, repetitiveCols)
		for c := range row {
			row[c] = 1
		}
		row = append(row[:4], append([]int{2 + r}, row[4:]...)...)
		valuesB[r] = row
	}
	gridB := gridFromNumbers(valuesB)

	assert.Nil(t, AlignSingleColumnChange(gridA, gridB))
}

func TestRowCountMismatchReturnsNil(t *testing.T) {
	gridA := gridFromNumbers([][]int{{1, 2}, {3, 4}})
	gridB := gridFromNumbers([][]int{{1, 2}})
	assert.Nil(t, AlignSingleColumnChange(gridA, gridB))
}

func TestOverSizeBoundsReturnsNil(t *testing.T) {
	gridA := grid.New(1, 200)
	gridB := grid.New(1, 201)
	assert.Nil(t, AlignSingleColumnChange(gridA, gridB))
}
