package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
)

// permissionObjects surfaces each sheet's protection metadata (a locked
// password hash plus the set of editing actions still permitted while
// locked) as one engine.NamedObject per protected sheet, diffed through
// the same add/remove/change path as named ranges and charts (SPEC_FULL
// "Permission bindings": original_source/core/src/permission_bindings.rs
// models workbook-level protection as its own comparable unit rather
// than silently folding it into the grid diff).
//
// This reads only the OOXML sheetProtection element excelize already
// parses (password hash presence, per-action lock flags); it does not
// attempt the original's DPAPI-encrypted DataMashup permission blob
// validation, which requires a Windows-only decryption API with no
// portable equivalent in the pack (see DESIGN.md).
func permissionObjects(f *excelize.File) []engine.NamedObject {
	var out []engine.NamedObject
	for _, name := range f.GetSheetList() {
		opts, err := f.GetSheetProtection(name)
		if err != nil || opts == nil {
			continue
		}
		out = append(out, engine.NamedObject{
			Class:      diffop.ObjectPermission,
			Name:       name,
			Definition: protectionDefinition(opts),
		})
	}
	return out
}

// protectionDefinition renders the subset of SheetProtectionOptions
// that distinguishes one protection configuration from another into a
// stable string so two identical configurations compare equal and any
// changed flag shows up as an ObjectDefinitionChanged op.
func protectionDefinition(opts *excelize.SheetProtectionOptions) string {
	return fmt.Sprintf(
		"password_set=%v format_cells=%v format_columns=%v format_rows=%v "+
			"insert_columns=%v insert_rows=%v insert_hyperlinks=%v "+
			"delete_columns=%v delete_rows=%v sort=%v auto_filter=%v "+
			"pivot_tables=%v select_locked_cells=%v select_unlocked_cells=%v",
		opts.Password != "",
		opts.FormatCells, opts.FormatColumns, opts.FormatRows,
		opts.InsertColumns, opts.InsertRows, opts.InsertHyperlinks,
		opts.DeleteColumns, opts.DeleteRows, opts.Sort, opts.AutoFilter,
		opts.PivotTables, opts.SelectLockedCells, opts.SelectUnlockedCells,
	)
}
