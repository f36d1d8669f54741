// Package workbook loads an XLSX/XLSM container into the engine's grid
// and object model. Grounded on the excelize usage in
// pkg/resource/excel/adapter.go (OpenFile/OpenReader, GetSheetList,
// GetRows, CoordinatesToCellName), generalized from a single
// first-sheet-as-a-table load to a full multi-sheet, multi-object
// workbook read.
package workbook

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
	"github.com/sheetdiff/sheetdiff/internal/grid"
)

// Open parses the OPC (ZIP) container at path and its embedded XML into
// an engine.Workbook (spec.md §6: open(bytes|reader) -> WorkbookPackage).
func Open(path string) (*engine.Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diffop.NewContainerError(path, err.Error())
	}
	return fromBytes(data, path)
}

// OpenReader is Open for an already-open stream (e.g. an upload body)
// instead of a filesystem path. The OPC container format requires
// random access, so the stream is buffered into memory first.
func OpenReader(r io.Reader) (*engine.Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, diffop.NewContainerError("<reader>", err.Error())
	}
	return fromBytes(data, "<reader>")
}

func fromBytes(data []byte, path string) (*engine.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, diffop.NewContainerError(path, err.Error())
	}
	defer f.Close()

	sheets := make([]engine.Sheet, 0, len(f.GetSheetList()))
	for _, name := range f.GetSheetList() {
		g, err := sheetToGrid(f, name)
		if err != nil {
			return nil, diffop.NewContainerError(path, fmt.Sprintf("sheet %q: %v", name, err))
		}
		sheets = append(sheets, engine.Sheet{Name: name, Grid: g})
	}

	objects := namedRangeObjects(f)
	objects = append(objects, permissionObjects(f)...)

	zr, err := zipReader(data)
	if err == nil {
		objects = append(objects, chartObjects(zr)...)
		objects = append(objects, vbaModuleObjects(zr)...)
		objects = append(objects, powerQueryObjects(zr)...)
	}

	return &engine.Workbook{Sheets: sheets, Objects: objects}, nil
}

// sheetToGrid reads every populated cell of sheet, preserving its
// numeric/text/bool/error kind and any formula, into a grid.Grid sized
// to the sheet's used range.
func sheetToGrid(f *excelize.File, sheet string) (*grid.Grid, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	nrows := uint32(len(rows))
	var ncols uint32
	for _, row := range rows {
		if uint32(len(row)) > ncols {
			ncols = uint32(len(row))
		}
	}

	g := grid.New(nrows, ncols)

	for r, row := range rows {
		for c := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}

			value, err := cellValue(f, sheet, axis)
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue
			}

			cell := grid.Cell{Row: uint32(r), Col: uint32(c), Value: value}
			if formula, err := f.GetCellFormula(sheet, axis); err == nil && formula != "" {
				cell.Formula = &formula
			}
			g.Insert(cell)
		}
	}
	return g, nil
}

func cellValue(f *excelize.File, sheet, axis string) (*grid.Value, error) {
	raw, err := f.GetCellValue(sheet, axis)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return nil, err
	}

	switch cellType {
	case excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			v := grid.Number(n)
			return &v, nil
		}
		v := grid.Text(raw)
		return &v, nil
	case excelize.CellTypeBool:
		v := grid.Bool(raw == "1" || raw == "TRUE" || raw == "true")
		return &v, nil
	case excelize.CellTypeError:
		v := grid.ErrorCode(raw)
		return &v, nil
	default:
		v := grid.Text(raw)
		return &v, nil
	}
}

func namedRangeObjects(f *excelize.File) []engine.NamedObject {
	var out []engine.NamedObject
	for _, dn := range f.GetDefinedName() {
		out = append(out, engine.NamedObject{
			Class:      diffop.ObjectNamedRange,
			Name:       dn.Name,
			Definition: dn.RefersTo,
		})
	}
	return out
}
