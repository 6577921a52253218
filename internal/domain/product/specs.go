package product

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
)

// Spec is a single informational key/value attribute of a product.
type Spec struct {
	Key   string
	Value string
}

// Specs is an ordered list of product attributes. It is stored as a JSON
// object and keeps the key order of the source document.
type Specs []Spec

// Get returns the value for key.
func (s Specs) Get(key string) (string, bool) {
	for _, sp := range s {
		if sp.Key == key {
			return sp.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes specs as a JSON object preserving order.
func (s Specs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sp := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(sp.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(sp.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into ordered specs. Non-string values
// are kept in their raw JSON form; null decodes to empty specs.
func (s *Specs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read specs")
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Errorf("specs: expected object, got %v", tok)
	}

	var out Specs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read spec key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("specs: unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "read spec %q", key)
		}
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			str = string(raw)
		}
		out = append(out, Spec{Key: key, Value: str})
	}
	*s = out
	return nil
}
