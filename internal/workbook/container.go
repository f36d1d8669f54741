package workbook

import (
	"archive/zip"
	"bytes"
	"io"
)

// zipReader opens the raw OPC container for the parts excelize does not
// expose through its own API (chart XML, vbaProject.bin, the Power
// Query DataMashup blob).
func zipReader(data []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

// findPart returns the decompressed bytes of the first zip entry whose
// name matches match, or nil if none does.
func findPart(zr *zip.Reader, match func(name string) bool) ([]byte, string, error) {
	for _, f := range zr.File {
		if !match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, "", err
		}
		return data, f.Name, nil
	}
	return nil, "", nil
}

// findParts returns every zip entry matching match, as (name, bytes) pairs.
func findParts(zr *zip.Reader, match func(name string) bool) ([][2]string, error) {
	var out [][2]string
	for _, f := range zr.File {
		if !match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, [2]string{f.Name, string(data)})
	}
	return out, nil
}
