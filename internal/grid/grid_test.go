package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellNum(row, col uint32, n float64) Cell {
	v := Number(n)
	return Cell{Row: row, Col: col, Value: &v}
}

func TestRowSignatureIgnoresColumnIndices(t *testing.T) {
	g1 := New(1, 3)
	g1.Insert(cellNum(0, 0, 1))
	g1.Insert(cellNum(0, 1, 2))

	g2 := New(1, 4)
	g2.Insert(cellNum(0, 1, 1))
	g2.Insert(cellNum(0, 2, 2))

	assert.True(t, g1.RowSignature(0).Equal(g2.RowSignature(0)),
		"row signature must depend only on content order, not column index")
}

func TestRowSignatureIgnoresTrailingBlanks(t *testing.T) {
	g1 := New(1, 5)
	g1.Insert(cellNum(0, 0, 1))

	g2 := New(1, 5)
	g2.Insert(cellNum(0, 0, 1))
	blank := Blank()
	g2.Insert(Cell{Row: 0, Col: 4, Value: &blank})

	assert.True(t, g1.RowSignature(0).Equal(g2.RowSignature(0)))
}

func TestFloatNormalizationCollapsesULPDrift(t *testing.T) {
	assert.Equal(t, normalizeFloatForHash(1.0), normalizeFloatForHash(1.0000000000000002))
	assert.NotEqual(t, normalizeFloatForHash(1.0), normalizeFloatForHash(1.0001))
}

func TestFloatNormalizationZeroAndNaN(t *testing.T) {
	assert.Equal(t, uint64(0), normalizeFloatForHash(0.0))
	assert.Equal(t, uint64(0), normalizeFloatForHash(negZero()))
	assert.Equal(t, canonicalNaNBits, normalizeFloatForHash(posNaN()))
}

func posNaN() float64 {
	var f float64
	return f / f // NaN without importing math in the test
}

func negZero() float64 {
	var f float64
	return -f // runtime negation gives -0.0; the constant -0.0 is +0
}

func TestCellsEqualUnderFloatNormalization(t *testing.T) {
	a := cellNum(0, 0, 1.0)
	b := cellNum(0, 0, 1.0000000000000002)
	assert.True(t, CellsEqual(&a, &b))

	c := cellNum(0, 0, 1.0001)
	assert.False(t, CellsEqual(&a, &c))
}

func TestColumnInsertPreservesOtherColumnSignatures(t *testing.T) {
	g1 := New(2, 2)
	g1.Insert(cellNum(0, 0, 1))
	g1.Insert(cellNum(1, 0, 2))
	before := g1.ColSignature(0)

	g1.Insert(cellNum(0, 1, 99)) // insert a new column's worth of content
	after := g1.ColSignature(0)

	require.True(t, before.Equal(after), "column signature must not depend on other columns")
}
