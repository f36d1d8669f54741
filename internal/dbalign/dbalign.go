// Package dbalign implements key-based row alignment for database-mode
// diffs (spec.md §4.8): rows are matched by an explicit key-column
// tuple via a hashmap lookup instead of positional/signature alignment,
// and a repeated key on either side is a hard error rather than a
// best-effort guess.
package dbalign

import (
	"math"

	"github.com/sheetdiff/sheetdiff/internal/grid"
)

// KeyColumnSpec names the columns that together form a row's key.
type KeyColumnSpec struct {
	Columns []uint32
}

func NewKeyColumnSpec(columns []uint32) KeyColumnSpec {
	return KeyColumnSpec{Columns: columns}
}

func (s KeyColumnSpec) IsKeyColumn(col uint32) bool {
	for _, c := range s.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// keyComponent is one column's contribution to a row's key. A slice of
// components cannot be a Go map key, so buildKeyValue encodes them into
// the string-backed KeyValue instead, which works as a map key for any
// number of key columns.
type keyComponent struct {
	kind    grid.ValueKind
	bits    uint64
	text    string
	formula string
	hasForm bool
}

func componentFromCell(c *grid.Cell) keyComponent {
	if c == nil || c.Value == nil {
		comp := keyComponent{kind: grid.KindBlank}
		return comp
	}
	comp := keyComponent{kind: c.Value.Kind}
	switch c.Value.Kind {
	case grid.KindNumber:
		comp.bits = math.Float64bits(c.Value.Number)
	case grid.KindText, grid.KindError:
		comp.text = c.Value.Text
	case grid.KindBool:
		if c.Value.Bool {
			comp.bits = 1
		}
	}
	if c.Formula != nil {
		comp.hasForm = true
		comp.formula = *c.Formula
	}
	return comp
}

// KeyValue is the full key-column tuple for one row. It is comparable
// and safe to use as a Go map key.
type KeyValue struct {
	components string // encoded so KeyValue stays a simple comparable value
}

func (k KeyValue) String() string { return k.components }

func buildKeyValue(components []keyComponent) KeyValue {
	// Fixed-width encoding per component keeps distinct key-column tuples
	// from colliding across component-count or content boundaries.
	var b []byte
	for _, c := range components {
		b = append(b, byte(c.kind))
		b = appendUint64(b, c.bits)
		b = appendLenPrefixed(b, c.text)
		if c.hasForm {
			b = append(b, 1)
			b = appendLenPrefixed(b, c.formula)
		} else {
			b = append(b, 0)
		}
	}
	return KeyValue{components: string(b)}
}

func appendUint64(b []byte, v uint64) []byte {
	return append(b,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56),
	)
}

func appendLenPrefixed(b []byte, s string) []byte {
	b = appendUint64(b, uint64(len(s)))
	return append(b, s...)
}

// KeyedRow pairs a computed key with the row it came from.
type KeyedRow struct {
	Key    KeyValue
	RowIdx uint32
}

// KeyedAlignment is the result of matching two grids' rows by key.
type KeyedAlignment struct {
	MatchedRows   []RowPair
	LeftOnlyRows  []uint32
	RightOnlyRows []uint32
}

// RowPair is a matched (old_row, new_row) pair.
type RowPair struct {
	OldRow uint32
	NewRow uint32
}

// Old and New satisfy celldiff.RowPairLike so key-based matches can feed
// straight into cell-level diffing without celldiff importing dbalign.
func (p RowPair) Old() uint32 { return p.OldRow }
func (p RowPair) New() uint32 { return p.NewRow }

// KeyAlignmentError reports a duplicate key on one side, which makes
// key-based alignment meaningless for that side.
type KeyAlignmentError struct {
	Side string // "left" or "right"
	Key  KeyValue
}

func (e *KeyAlignmentError) Error() string {
	return "dbalign: duplicate key on " + e.Side + " side: " + e.Key.String()
}

// DiffTableByKey aligns old's rows to new's rows using key_columns as
// the join key. A key repeated within either grid is an error: the
// caller has no principled way to decide which duplicate corresponds to
// which.
func DiffTableByKey(old, newer *grid.Grid, keyColumns []uint32) (*KeyedAlignment, error) {
	spec := NewKeyColumnSpec(keyColumns)

	leftRows, err := buildKeyedRows(old, spec, "left")
	if err != nil {
		return nil, err
	}
	rightRows, err := buildKeyedRows(newer, spec, "right")
	if err != nil {
		return nil, err
	}

	rightLookup := make(map[KeyValue]uint32, len(rightRows))
	for _, row := range rightRows {
		rightLookup[row.Key] = row.RowIdx
	}

	var matched []RowPair
	var leftOnly []uint32
	matchedRight := make(map[uint32]struct{}, len(rightRows))

	for _, row := range leftRows {
		if rowB, ok := rightLookup[row.Key]; ok {
			matched = append(matched, RowPair{OldRow: row.RowIdx, NewRow: rowB})
			matchedRight[rowB] = struct{}{}
		} else {
			leftOnly = append(leftOnly, row.RowIdx)
		}
	}

	var rightOnly []uint32
	for _, row := range rightRows {
		if _, ok := matchedRight[row.RowIdx]; !ok {
			rightOnly = append(rightOnly, row.RowIdx)
		}
	}

	return &KeyedAlignment{
		MatchedRows:   matched,
		LeftOnlyRows:  leftOnly,
		RightOnlyRows: rightOnly,
	}, nil
}

func buildKeyedRows(g *grid.Grid, spec KeyColumnSpec, side string) ([]KeyedRow, error) {
	rows := make([]KeyedRow, 0, g.NRows)
	seen := make(map[KeyValue]struct{}, g.NRows)

	for rowIdx := uint32(0); rowIdx < g.NRows; rowIdx++ {
		key := extractKey(g, rowIdx, spec)
		if _, dup := seen[key]; dup {
			return nil, &KeyAlignmentError{Side: side, Key: key}
		}
		seen[key] = struct{}{}
		rows = append(rows, KeyedRow{Key: key, RowIdx: rowIdx})
	}
	return rows, nil
}

func extractKey(g *grid.Grid, rowIdx uint32, spec KeyColumnSpec) KeyValue {
	components := make([]keyComponent, len(spec.Columns))
	for i, col := range spec.Columns {
		components[i] = componentFromCell(g.Get(rowIdx, col))
	}
	return buildKeyValue(components)
}
