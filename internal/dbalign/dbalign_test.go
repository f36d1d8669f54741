package dbalign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

func gridFromRows(rows [][]int) *grid.Grid {
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

func TestUniqueKeysReorderNoChanges(t *testing.T) {
	a := gridFromRows([][]int{{1, 10}, {2, 20}, {3, 30}})
	b := gridFromRows([][]int{{3, 30}, {1, 10}, {2, 20}})

	alignment, err := DiffTableByKey(a, b, []uint32{0})
	require.NoError(t, err)

	assert.Equal(t, []RowPair{{OldRow: 0, NewRow: 1}, {OldRow: 1, NewRow: 2}, {OldRow: 2, NewRow: 0}}, alignment.MatchedRows)
	assert.Empty(t, alignment.LeftOnlyRows)
	assert.Empty(t, alignment.RightOnlyRows)
}

func TestUniqueKeysInsertDeleteClassified(t *testing.T) {
	a := gridFromRows([][]int{{1, 10}, {2, 20}})
	b := gridFromRows([][]int{{1, 10}, {2, 20}, {3, 30}})

	alignment, err := DiffTableByKey(a, b, []uint32{0})
	require.NoError(t, err)

	assert.Equal(t, []RowPair{{OldRow: 0, NewRow: 0}, {OldRow: 1, NewRow: 1}}, alignment.MatchedRows)
	assert.Empty(t, alignment.LeftOnlyRows)
	assert.Equal(t, []uint32{2}, alignment.RightOnlyRows)
}

func TestDuplicateKeysError(t *testing.T) {
	a := gridFromRows([][]int{{1, 10}, {1, 99}})
	b := gridFromRows([][]int{{1, 10}})

	_, err := DiffTableByKey(a, b, []uint32{0})
	require.Error(t, err)

	var keyErr *KeyAlignmentError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "left", keyErr.Side)
}

func TestCompositeKeyAcrossMultipleColumns(t *testing.T) {
	a := gridFromRows([][]int{{1, 1, 100}, {1, 2, 200}})
	b := gridFromRows([][]int{{1, 2, 999}, {1, 1, 100}})

	alignment, err := DiffTableByKey(a, b, []uint32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []RowPair{{OldRow: 0, NewRow: 1}, {OldRow: 1, NewRow: 0}}, alignment.MatchedRows)
}
