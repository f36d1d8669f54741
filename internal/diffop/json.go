package diffop

import (
	"encoding/json"

	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// wireOp is the JSON shape persisted in a report / emitted per line of a
// JSON-Lines stream (spec.md §6). Pointer fields are left nil, and so
// omitted, for kinds that do not carry them; a field the op's kind
// carries is written even when its value is zero. Each op's JSON thus
// stays proportional to what it actually carries.
type wireOp struct {
	Kind Kind `json:"kind"`

	Sheet *stringpool.ID `json:"sheet,omitempty"`

	SheetName    *stringpool.ID `json:"sheet_name,omitempty"`
	OldSheetName *stringpool.ID `json:"old_sheet_name,omitempty"`
	NewSheetName *stringpool.ID `json:"new_sheet_name,omitempty"`

	RowIdx *uint32 `json:"row_idx,omitempty"`
	ColIdx *uint32 `json:"col_idx,omitempty"`

	SrcStartRow *uint32 `json:"src_start_row,omitempty"`
	RowCount    *uint32 `json:"row_count,omitempty"`
	DstStartRow *uint32 `json:"dst_start_row,omitempty"`
	BlockHash   *string `json:"block_hash,omitempty"`

	SrcStartCol *uint32 `json:"src_start_col,omitempty"`
	ColCount    *uint32 `json:"col_count,omitempty"`
	DstStartCol *uint32 `json:"dst_start_col,omitempty"`

	ReplacedRow *uint32 `json:"replaced_row,omitempty"`

	RectStartRow *uint32 `json:"rect_start_row,omitempty"`
	RectRowCount *uint32 `json:"rect_row_count,omitempty"`
	RectStartCol *uint32 `json:"rect_start_col,omitempty"`
	RectColCount *uint32 `json:"rect_col_count,omitempty"`

	Addr json.RawMessage `json:"addr,omitempty"`
	From *wireSnapshot   `json:"from,omitempty"`
	To   *wireSnapshot   `json:"to,omitempty"`

	ObjectClass   ObjectClass    `json:"object_class,omitempty"`
	ObjectName    *stringpool.ID `json:"object_name,omitempty"`
	OldObjectName *stringpool.ID `json:"old_object_name,omitempty"`
	NewObjectName *stringpool.ID `json:"new_object_name,omitempty"`
	Detail        string         `json:"detail,omitempty"`
}

type wireSnapshot struct {
	Value   interface{} `json:"value"`
	Formula *string     `json:"formula"`
}

func ptrU32(v uint32) *uint32           { return &v }
func ptrID(v stringpool.ID) *stringpool.ID { return &v }

// MarshalJSON renders op in the persisted report shape (spec.md §6).
func (op DiffOp) MarshalJSON() ([]byte, error) {
	w := wireOp{Kind: op.Kind}

	switch op.Kind {
	case KindSheetAdded, KindSheetRemoved:
		w.SheetName = ptrID(op.SheetName)
	case KindSheetRenamed:
		w.OldSheetName = ptrID(op.OldSheetName)
		w.NewSheetName = ptrID(op.NewSheetName)
	case KindRowAdded, KindRowRemoved:
		w.Sheet = ptrID(op.Sheet)
		w.RowIdx = ptrU32(op.RowIdx)
	case KindColumnAdded, KindColumnRemoved:
		w.Sheet = ptrID(op.Sheet)
		w.ColIdx = ptrU32(op.ColIdx)
	case KindBlockMovedRows:
		w.Sheet = ptrID(op.Sheet)
		w.SrcStartRow = ptrU32(op.SrcStartRow)
		w.RowCount = ptrU32(op.RowCount)
		w.DstStartRow = ptrU32(op.DstStartRow)
		w.BlockHash = op.BlockHash
	case KindBlockMovedColumns:
		w.Sheet = ptrID(op.Sheet)
		w.SrcStartCol = ptrU32(op.SrcStartCol)
		w.ColCount = ptrU32(op.ColCount)
		w.DstStartCol = ptrU32(op.DstStartCol)
	case KindBlockMovedRect:
		w.Sheet = ptrID(op.Sheet)
		w.SrcStartRow = ptrU32(op.SrcStartRow)
		w.RowCount = ptrU32(op.RowCount)
		w.SrcStartCol = ptrU32(op.SrcStartCol)
		w.ColCount = ptrU32(op.ColCount)
		w.DstStartRow = ptrU32(op.DstStartRow)
		w.DstStartCol = ptrU32(op.DstStartCol)
	case KindRowReplaced:
		w.Sheet = ptrID(op.Sheet)
		w.ReplacedRow = ptrU32(op.ReplacedRow)
	case KindRectReplaced:
		w.Sheet = ptrID(op.Sheet)
		w.RectStartRow = ptrU32(op.RectStartRow)
		w.RectRowCount = ptrU32(op.RectRowCount)
		w.RectStartCol = ptrU32(op.RectStartCol)
		w.RectColCount = ptrU32(op.RectColCount)
	case KindCellEdited:
		w.Sheet = ptrID(op.Sheet)
		addrJSON, err := json.Marshal(op.Addr)
		if err != nil {
			return nil, err
		}
		w.Addr = addrJSON
		w.From = snapshotToWire(op.From)
		w.To = snapshotToWire(op.To)
	case KindObjectAdded, KindObjectRemoved:
		w.ObjectClass = op.ObjectClass
		w.ObjectName = ptrID(op.ObjectName)
	case KindObjectRenamed:
		w.ObjectClass = op.ObjectClass
		w.OldObjectName = ptrID(op.OldObjectName)
		w.NewObjectName = ptrID(op.NewObjectName)
	case KindObjectDefinitionChanged, KindObjectMetadataChanged:
		w.ObjectClass = op.ObjectClass
		w.ObjectName = ptrID(op.ObjectName)
		w.Detail = op.Detail
	}

	return json.Marshal(w)
}

func snapshotToWire(s *CellSnapshot) *wireSnapshot {
	if s == nil {
		return nil
	}
	var val interface{}
	if s.Value != nil {
		val = *s.Value
	}
	return &wireSnapshot{Value: val, Formula: s.Formula}
}
