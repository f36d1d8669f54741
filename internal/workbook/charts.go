package workbook

import (
	"archive/zip"
	"path"
	"strings"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
)

// chartObjects lists xl/charts/chart*.xml parts directly: excelize's
// chart API is write-oriented (AddChart) and does not expose a generic
// "list every chart's raw definition" read path, so this reads the OPC
// part the way the rest of the package reads vbaProject.bin and the
// Power Query mashup blob.
func chartObjects(zr *zip.Reader) []engine.NamedObject {
	parts, err := findParts(zr, func(name string) bool {
		return strings.HasPrefix(name, "xl/charts/chart") && strings.HasSuffix(name, ".xml")
	})
	if err != nil {
		return nil
	}

	out := make([]engine.NamedObject, 0, len(parts))
	for _, p := range parts {
		out = append(out, engine.NamedObject{
			Class:      diffop.ObjectChart,
			Name:       path.Base(p[0]),
			Definition: p[1],
		})
	}
	return out
}
