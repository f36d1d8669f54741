// Package diffop defines the emission alphabet of the diff engine: the
// tagged DiffOp variant, the DiffReport/DiffSummary envelopes, and the
// error/warning types the engine can raise (spec.md §3, §7).
package diffop

import (
	"fmt"

	"github.com/sheetdiff/sheetdiff/internal/grid"
	"github.com/sheetdiff/sheetdiff/internal/metrics"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// Kind discriminates the DiffOp tagged variant. Using a single struct
// parameterized by Kind (rather than runtime dynamic dispatch through an
// interface) keeps emission and serialization straightforward, per the
// polymorphic-sink design note in spec.md §9.
type Kind string

const (
	KindSheetAdded   Kind = "SheetAdded"
	KindSheetRemoved Kind = "SheetRemoved"
	KindSheetRenamed Kind = "SheetRenamed"

	KindRowAdded      Kind = "RowAdded"
	KindRowRemoved    Kind = "RowRemoved"
	KindColumnAdded   Kind = "ColumnAdded"
	KindColumnRemoved Kind = "ColumnRemoved"

	KindBlockMovedRows    Kind = "BlockMovedRows"
	KindBlockMovedColumns Kind = "BlockMovedColumns"
	KindBlockMovedRect    Kind = "BlockMovedRect"

	KindRowReplaced  Kind = "RowReplaced"
	KindRectReplaced Kind = "RectReplaced"
	KindCellEdited   Kind = "CellEdited"

	// Object-level ops share one shape distinguished by ObjectClass.
	KindObjectAdded             Kind = "ObjectAdded"
	KindObjectRemoved           Kind = "ObjectRemoved"
	KindObjectRenamed           Kind = "ObjectRenamed"
	KindObjectDefinitionChanged Kind = "ObjectDefinitionChanged"
	KindObjectMetadataChanged   Kind = "ObjectMetadataChanged"
)

// ObjectClass names the kind of workbook object an object-level op
// concerns (spec.md §3 "Object-level").
type ObjectClass string

const (
	ObjectNamedRange ObjectClass = "NamedRange"
	ObjectChart      ObjectClass = "Chart"
	ObjectVBAModule  ObjectClass = "VBAModule"
	ObjectPowerQuery ObjectClass = "PowerQuery"
	ObjectPermission ObjectClass = "Permission"
)

// CellSnapshot is the from/to payload of a CellEdited op.
type CellSnapshot struct {
	Value   *grid.Value
	Formula *string
}

// DiffOp is one atomic observation in the output stream. Only the fields
// relevant to Kind are populated; the rest are zero values.
type DiffOp struct {
	Kind Kind

	// Sheet-scoped ops (all row/col/block/cell kinds) carry the owning
	// sheet name as an interned id.
	Sheet stringpool.ID

	// KindSheetAdded / KindSheetRemoved
	SheetName stringpool.ID
	// KindSheetRenamed
	OldSheetName stringpool.ID
	NewSheetName stringpool.ID

	// KindRowAdded / KindRowRemoved
	RowIdx uint32
	// KindColumnAdded / KindColumnRemoved
	ColIdx uint32

	// KindBlockMovedRows
	SrcStartRow uint32
	RowCount    uint32
	DstStartRow uint32
	BlockHash   *string // optional disambiguating content hash

	// KindBlockMovedColumns
	SrcStartCol uint32
	ColCount    uint32
	DstStartCol uint32

	// KindBlockMovedRect (uses SrcStartRow/SrcStartCol/DstStartRow/DstStartCol
	// plus RowCount/ColCount for the rectangle's dimensions)

	// KindRowReplaced
	ReplacedRow uint32
	// KindRectReplaced
	RectStartRow uint32
	RectRowCount uint32
	RectStartCol uint32
	RectColCount uint32

	// KindCellEdited
	Addr grid.Address
	From *CellSnapshot
	To   *CellSnapshot

	// Object-level ops
	ObjectClass   ObjectClass
	ObjectName    stringpool.ID
	OldObjectName stringpool.ID
	NewObjectName stringpool.ID
	Detail        string // free-form description of what changed (definition/metadata)
}

// DiffSummary is the lightweight result of a streaming diff: no ops are
// materialized, only counts and completion state.
type DiffSummary struct {
	OpCount  int
	Complete bool
	Warnings []string

	// Metrics is non-nil only when the run's config.DiffConfig set
	// CollectMetrics; it carries per-stage timings and counts for
	// callers that want them (e.g. a CLI --metrics flag or an MCP tool
	// response field).
	Metrics *metrics.Snapshot
}

// SchemaVersion is the persisted report format version (spec.md §6).
const SchemaVersion = "1.0.0"

// DiffReport is the materializing convenience result of diff().
type DiffReport struct {
	Version  string
	Strings  []string
	Ops      []DiffOp
	Complete bool
	Warnings []string
	Metrics  *metrics.Snapshot `json:",omitempty"`
}

// FromOpsAndSummary assembles a DiffReport from streamed ops and a summary.
func FromOpsAndSummary(ops []DiffOp, summary DiffSummary, strings []string) DiffReport {
	return DiffReport{
		Version:  SchemaVersion,
		Strings:  strings,
		Ops:      ops,
		Complete: summary.Complete,
		Warnings: summary.Warnings,
		Metrics:  summary.Metrics,
	}
}

// ContainerError is raised while parsing the OPC container / embedded
// XML of a workbook (spec.md §7.1). Non-recoverable for the enclosing
// diff run.
type ContainerError struct {
	Path   string
	Reason string
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("container error in %s: %s", e.Path, e.Reason)
}

func NewContainerError(path, reason string) *ContainerError {
	return &ContainerError{Path: path, Reason: reason}
}

// DiffError is raised during a diff run (spec.md §7.2): sink failures,
// exceeding max_ops, duplicate database-mode keys, or invalid config.
type DiffError struct {
	Reason string
}

func (e *DiffError) Error() string {
	return e.Reason
}

func NewDiffError(format string, args ...interface{}) *DiffError {
	return &DiffError{Reason: fmt.Sprintf(format, args...)}
}

// WrapSinkError preserves a sink failure verbatim, per spec.md §4.9/§7.2
// ("sink failure (propagated verbatim)").
func WrapSinkError(err error) *DiffError {
	return &DiffError{Reason: err.Error()}
}

// KeyAlignmentError reports a duplicate key within one side of a
// database-mode diff (spec.md §4.8, §7.2).
type KeyAlignmentError struct {
	Side string // "old" or "new"
	Key  string
}

func (e *KeyAlignmentError) Error() string {
	return fmt.Sprintf("duplicate key in %s side: %s", e.Side, e.Key)
}
