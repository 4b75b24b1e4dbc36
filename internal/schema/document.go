package schema

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Node types of an induced document.
const (
	TypeObject = "object"
	TypeArray  = "array"
	TypeString = "string"
)

// Document is a JSON-Schema-like description of a record shape.
type Document struct {
	Title      string     `json:"title,omitempty"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties,omitempty"`
	Items      *Document  `json:"items,omitempty"`
}

// Property is one keyed child of an object node.
type Property struct {
	Key    string
	Schema *Document
}

// Properties keeps object members in a stable order.
type Properties []Property

// Get returns the property with the given key.
func (p Properties) Get(key string) (*Document, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Schema, true
		}
	}

	return nil, false
}

// Keys returns the property keys in order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, prop := range p {
		keys = append(keys, prop.Key)
	}

	return keys
}

// MarshalJSON writes the properties as a JSON object in order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping member order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("properties must be an object, got %v", tok)
	}

	var out Properties

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return errors.Newf("unexpected property key %v", tok)
		}

		var child Document
		if err := dec.Decode(&child); err != nil {
			return errors.Wrapf(err, "property %q", key)
		}

		out = append(out, Property{Key: key, Schema: &child})
	}

	*p = out

	return nil
}
