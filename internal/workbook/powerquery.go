package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"path"
	"strings"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/engine"
	"github.com/sheetdiff/sheetdiff/internal/mquery"
)

// A customXml item part that embeds a Power Query DataMashup payload
// wraps a base64 blob in a single element whose local name is
// "DataMashup"; the surrounding namespace/prefix varies by Excel
// version, so this matches on local name only.
type customXMLItem struct {
	XMLName xml.Name
	Mashup  string `xml:"DataMashup"`
}

// powerQueryObjects finds every customXml part carrying a DataMashup
// payload, decodes the base64 blob into its inner ZIP (Config/Package.xml
// plus one or more Formulas/Section1.m documents), and returns one
// NamedObject per M query section. Grounded on
// original_source/core/src/datamashup_package.rs: the payload is itself
// an OPC-style ZIP, nested inside the outer workbook ZIP.
func powerQueryObjects(zr *zip.Reader) []engine.NamedObject {
	parts, err := findParts(zr, func(name string) bool {
		return strings.HasPrefix(name, "customXml/item") && strings.HasSuffix(name, ".xml")
	})
	if err != nil {
		return nil
	}

	var out []engine.NamedObject
	for _, p := range parts {
		blob := extractMashupBlob(p[1])
		if blob == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			continue
		}
		sections, err := parseMashup(raw)
		if err != nil {
			continue
		}
		for _, sec := range sections {
			out = append(out, engine.NamedObject{
				Class:      diffop.ObjectPowerQuery,
				Name:       sec.name,
				Definition: mquery.Canonicalize(sec.source),
			})
		}
	}
	return out
}

func extractMashupBlob(xmlText string) string {
	var item customXMLItem
	if err := xml.Unmarshal([]byte(xmlText), &item); err != nil {
		return ""
	}
	return strings.TrimSpace(item.Mashup)
}

type mashupSection struct {
	name   string
	source string
}

// parseMashup reads the inner ZIP per datamashup_package.rs:
// Formulas/Section1.m is the workbook's main query section; any
// Content/<name>/Formulas/Section1.m is an additional embedded query.
func parseMashup(raw []byte) ([]mashupSection, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}

	var sections []mashupSection
	for _, f := range zr.File {
		name := normalizeMashupPath(f.Name)
		if name != "Formulas/Section1.m" && !strings.HasSuffix(name, "/Formulas/Section1.m") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		_, copyErr := buf.ReadFrom(rc)
		rc.Close()
		if copyErr != nil {
			continue
		}

		source := stripBOM(buf.String())
		sectionName := "Section1"
		if root := strings.TrimSuffix(name, "/Formulas/Section1.m"); root != name {
			sectionName = path.Base(root)
		}
		sections = append(sections, mashupSection{name: sectionName, source: source})
	}
	return sections, nil
}

func normalizeMashupPath(name string) string {
	return strings.ReplaceAll(strings.TrimLeft(name, "/\\"), "\\", "/")
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, string(rune(0xFEFF)))
}
