// Package alignment implements AMR (Anchor-based Multi-scale Recursion),
// the row-alignment algorithm: anchor discovery, dual-monotone chain
// selection, per-gap strategy classification, and bounded recursive
// gap resolution. Grounded on the anchor/gap/recursion design in
// spec.md §4.3-§4.5.
package alignment

// RowAlignment is the result of aligning two sheets' rows: which old
// rows matched which new rows, which rows were pure insertions or
// deletions, and any detected block moves.
type RowAlignment struct {
	Matched  []RowPair
	Inserted []uint32
	Deleted  []uint32
	Moves    []RowBlockMove
}

// RowPair is a matched (old_row, new_row) coordinate pair.
type RowPair struct {
	OldRow uint32
	NewRow uint32
}

// Old and New satisfy celldiff.RowPairLike so alignment results can feed
// straight into cell-level diffing without celldiff importing alignment.
func (p RowPair) Old() uint32 { return p.OldRow }
func (p RowPair) New() uint32 { return p.NewRow }

// RowBlockMove describes a contiguous run of rows that moved as a unit
// from src_start_row (old side) to dst_start_row (new side).
type RowBlockMove struct {
	SrcStartRow uint32
	DstStartRow uint32
	RowCount    uint32
}

// Anchor is a fixed point for alignment: a row-signature match between
// the two sides that is not low-info.
type Anchor struct {
	OldRow uint32
	NewRow uint32
}
