package alignment

import "github.com/sheetdiff/sheetdiff/internal/gridview"

// compressedRun is a maximal sequence of consecutive rows sharing one
// signature, used only by the AMR fast path below.
type compressedRun struct {
	StartRow uint32
	Count    uint32
	Meta     gridview.RowMeta // representative row; carries the Signature
}

// CompressToRuns collapses consecutive rows sharing a signature into
// runs. Used by the AMR fast path: a single old run and a single new run
// with matching signatures means the two sheets differ only by a
// trailing insert/delete of identical rows, skipping anchor discovery
// entirely.
func CompressToRuns(meta []gridview.RowMeta) []compressedRun {
	if len(meta) == 0 {
		return nil
	}
	runs := make([]compressedRun, 0, 4)
	cur := compressedRun{StartRow: meta[0].RowIdx, Count: 1, Meta: meta[0]}
	for i := 1; i < len(meta); i++ {
		if meta[i].Signature.Equal(cur.Meta.Signature) {
			cur.Count++
			continue
		}
		runs = append(runs, cur)
		cur = compressedRun{StartRow: meta[i].RowIdx, Count: 1, Meta: meta[i]}
	}
	runs = append(runs, cur)
	return runs
}
