package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sheetdiff/sheetdiff/internal/diffop"
	"github.com/sheetdiff/sheetdiff/internal/stringpool"
)

// JSONLinesSink writes the spec.md §6 JSON-Lines stream: one Begin
// header, one line per op, one End trailer. It never materializes the
// full op list, satisfying the "streaming mode never materializes"
// requirement in spec.md §4.9.
type JSONLinesSink struct {
	w       io.Writer
	encoder *json.Encoder
	failed  bool
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{w: w, encoder: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Begin(pool *stringpool.Pool) error {
	if err := s.encoder.Encode(diffop.NewBeginLine(pool.Strings())); err != nil {
		s.failed = true
		return fmt.Errorf("jsonlines sink: writing begin line: %w", err)
	}
	return nil
}

func (s *JSONLinesSink) Emit(op diffop.DiffOp) error {
	if s.failed {
		return fmt.Errorf("jsonlines sink: emit called after a prior failure")
	}
	if err := s.encoder.Encode(op); err != nil {
		s.failed = true
		return fmt.Errorf("jsonlines sink: writing op line: %w", err)
	}
	return nil
}

func (s *JSONLinesSink) Finish() error {
	return s.FinishWithSummary(!s.failed, nil)
}

// FinishWithSummary writes the End trailer carrying the final completion
// state and warnings. Orchestrators that know the summary before calling
// Finish should use this instead of the zero-argument Finish.
func (s *JSONLinesSink) FinishWithSummary(complete bool, warnings []string) error {
	return s.encoder.Encode(diffop.NewEndLine(complete, warnings))
}
