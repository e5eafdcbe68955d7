package matrix

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON produces the canonical encoding defined by the Matrix signing
// spec: object keys sorted by codepoint at every level, minimal whitespace,
// and the top-level "signatures" and "unsigned" fields removed. These are the
// exact bytes that get signed, so the output must be byte-stable across runs
// and platforms.
//
// encoding/json already sorts map keys byte-wise (which equals codepoint order
// for UTF-8) and emits no insignificant whitespace, so the value is round-
// tripped through a generic decode to normalize structs and field order.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // keep number literals exactly as written
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	if obj, ok := generic.(map[string]interface{}); ok {
		delete(obj, "signatures")
		delete(obj, "unsigned")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}

	// Encoder appends a newline, which is not part of the canonical form.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
