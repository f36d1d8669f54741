package diffop

import (
	"encoding/json"

	"github.com/sheetdiff/sheetdiff/internal/metrics"
)

type wireReport struct {
	Version  string    `json:"version"`
	Strings  []string  `json:"strings"`
	Ops      []DiffOp  `json:"ops"`
	Complete bool      `json:"complete"`
	Warnings []string  `json:"warnings"`
	Metrics  *metrics.Snapshot `json:"metrics,omitempty"`
}

// MarshalJSON renders the report in the shape documented in spec.md §6.
func (r DiffReport) MarshalJSON() ([]byte, error) {
	ops := r.Ops
	if ops == nil {
		ops = []DiffOp{}
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return json.Marshal(wireReport{
		Version:  r.Version,
		Strings:  r.Strings,
		Ops:      ops,
		Complete: r.Complete,
		Warnings: warnings,
		Metrics:  r.Metrics,
	})
}

// BeginLine and EndLine are the JSON-Lines streaming header/trailer
// records (spec.md §6): one "Begin" line with the string table, then one
// line per op, then one "End" line with completion state.
type BeginLine struct {
	Kind    string   `json:"kind"`
	Strings []string `json:"strings"`
}

type EndLine struct {
	Kind     string   `json:"kind"`
	Complete bool     `json:"complete"`
	Warnings []string `json:"warnings"`
}

func NewBeginLine(strings []string) BeginLine {
	return BeginLine{Kind: "Begin", Strings: strings}
}

func NewEndLine(complete bool, warnings []string) EndLine {
	if warnings == nil {
		warnings = []string{}
	}
	return EndLine{Kind: "End", Complete: complete, Warnings: warnings}
}
