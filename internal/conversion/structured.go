package conversion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StructuredData flattens a nested JSON payload into rows. A top-level array
// yields one row per element; a single object yields one row. Nested objects
// flatten to dot-joined column names (a.b), arrays to dot-indexed names
// (a.0.b). The unified header contains every key seen across all records in
// first-seen order; rows lacking a key render an empty cell. Unparseable
// payloads degrade to the single-column fallback.
func StructuredData(payload []byte) Result {
	value, err := decodeOrdered(payload)
	if err != nil {
		return Fallback(payload)
	}

	var records []any
	switch v := value.(type) {
	case jsonArray:
		records = v
	default:
		records = []any{value}
	}

	var header []string
	seen := make(map[string]int)
	flat := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		cells := make(map[string]string)
		flatten("", rec, func(key, val string) {
			if key == "" {
				key = "value"
			}
			if _, ok := seen[key]; !ok {
				seen[key] = len(header)
				header = append(header, key)
			}
			cells[key] = val
		})
		flat = append(flat, cells)
	}
	if len(header) == 0 {
		return Fallback(payload)
	}

	res := Result{Header: header, Rows: make([][]string, 0, len(flat))}
	for _, cells := range flat {
		row := make([]string, len(header))
		for key, idx := range seen {
			row[idx] = cells[key]
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// flatten walks the decoded value depth-first, emitting one (column, cell)
// pair per scalar leaf. Empty objects and arrays contribute nothing.
func flatten(prefix string, v any, emit func(key, val string)) {
	switch t := v.(type) {
	case jsonObject:
		for _, m := range t {
			flatten(joinKey(prefix, m.key), m.value, emit)
		}
	case jsonArray:
		for i, e := range t {
			flatten(joinKey(prefix, strconv.Itoa(i)), e, emit)
		}
	default:
		emit(prefix, renderScalar(v))
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func renderScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// jsonObject preserves member order; encoding/json maps do not, and column
// order must be deterministic for identical input bytes.
type jsonObject []member

type member struct {
	key   string
	value any
}

type jsonArray []any

// decodeOrdered parses JSON from payload keeping object member order.
// Trailing non-whitespace after the document is an error.
func decodeOrdered(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := jsonObject{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, member{key: key, value: val})
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, err
			}
			return obj, nil
		case '[':
			arr := jsonArray{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	default:
		return tok, nil
	}
}
