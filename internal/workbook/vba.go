package workbook

import (
	"archive/zip"
	"bytes"
	"io"

	"github.com/richardlehane/mscfb"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
)

// vbaModuleObjects reads xl/vbaProject.bin, a Compound File Binary
// container, and lists its streams as VBA module objects. Grounded on
// mscfb (pulled in transitively by excelize for the same CFB format);
// each stream's raw bytes stand in for the module source itself since
// decompiling the Office compressed-container format it's stored in
// (MS-OVBA's proprietary run-length scheme) is out of scope here.
func vbaModuleObjects(zr *zip.Reader) []engine.NamedObject {
	data, _, err := findPart(zr, func(name string) bool { return name == "xl/vbaProject.bin" })
	if err != nil || data == nil {
		return nil
	}

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	var out []engine.NamedObject
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry == nil || entry.Size == 0 {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, doc, int64(entry.Size)); err != nil && err != io.EOF {
			continue
		}
		out = append(out, engine.NamedObject{
			Class:      diffop.ObjectVBAModule,
			Name:       entry.Name,
			Definition: buf.String(),
		})
	}
	return out
}
