package grid

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders an Address as {"row":5,"col":2,"a1":"C6"}. Spec.md
// §6 requires both the 0-indexed pair and the A1 string be present so
// downstream loaders can tolerate either representation.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row uint32 `json:"row"`
		Col uint32 `json:"col"`
		A1  string `json:"a1"`
	}{Row: a.Row, Col: a.Col, A1: a.String()})
}

// UnmarshalJSON accepts either the {"row","col"} object form (the "a1"
// field, if present, is ignored since row/col are authoritative) or a
// bare A1 string, per the loader-tolerance requirement in spec.md §6.
func (a *Address) UnmarshalJSON(data []byte) error {
	var obj struct {
		Row *uint32 `json:"row"`
		Col *uint32 `json:"col"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Row != nil && obj.Col != nil {
		a.Row = *obj.Row
		a.Col = *obj.Col
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("grid: cannot unmarshal address from %s", data)
	}
	row, col, err := parseA1(s)
	if err != nil {
		return err
	}
	a.Row, a.Col = row, col
	return nil
}

// parseA1 parses a 0-indexed-output A1 reference like "C6" into (row, col).
func parseA1(s string) (row, col uint32, err error) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, fmt.Errorf("grid: malformed A1 reference %q", s)
	}
	letters := s[:i]
	digits := s[i:]

	var colNum uint32
	for _, ch := range letters {
		colNum = colNum*26 + uint32(ch-'A'+1)
	}

	var rowNum uint32
	if _, err := fmt.Sscanf(digits, "%d", &rowNum); err != nil || rowNum == 0 {
		return 0, 0, fmt.Errorf("grid: malformed A1 reference %q", s)
	}

	return rowNum - 1, colNum - 1, nil
}

// MarshalJSON renders a Value in the tagged-variant shape spec.md §6
// shows, e.g. {"Number":1.0}, {"Text":"x"}, {"Bool":true}, {"Blank":true},
// {"Error":"#DIV/0!"}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(struct {
			Number float64 `json:"Number"`
		}{v.Number})
	case KindText:
		return json.Marshal(struct {
			Text string `json:"Text"`
		}{v.Text})
	case KindBool:
		return json.Marshal(struct {
			Bool bool `json:"Bool"`
		}{v.Bool})
	case KindError:
		return json.Marshal(struct {
			Error string `json:"Error"`
		}{v.Text})
	default:
		return json.Marshal(struct {
			Blank bool `json:"Blank"`
		}{true})
	}
}

// UnmarshalJSON accepts exactly one of the tagged-variant keys.
func (v *Value) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if raw, ok := obj["Number"]; ok {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		*v = Number(n)
		return nil
	}
	if raw, ok := obj["Text"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	if raw, ok := obj["Bool"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	}
	if raw, ok := obj["Error"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = ErrorCode(s)
		return nil
	}
	*v = Blank()
	return nil
}
