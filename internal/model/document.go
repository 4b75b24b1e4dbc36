package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"metadata-mapper/internal/domain"
)

// LoadFile reads a JSON or YAML document and returns it as JSON.
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read document %s", path)
	}

	return LoadDocument(data)
}

// LoadDocument returns data as JSON. Input that is not valid JSON is parsed
// as YAML and re-encoded.
func LoadDocument(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, domain.NewInvalidDocument("empty document", nil)
	}

	if json.Valid(trimmed) {
		return trimmed, nil
	}

	var v any
	if err := yaml.Unmarshal(trimmed, &v); err != nil {
		return nil, domain.NewInvalidDocument("neither JSON nor YAML", err)
	}

	out, err := json.Marshal(jsonCompatible(v))
	if err != nil {
		return nil, domain.NewInvalidDocument("cannot convert YAML to JSON", err)
	}

	return out, nil
}

// jsonCompatible rewrites map[any]any produced for non-string YAML keys.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = jsonCompatible(e)
		}

		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = jsonCompatible(e)
		}

		return m
	case []any:
		for i, e := range t {
			t[i] = jsonCompatible(e)
		}

		return t
	default:
		return v
	}
}

// Decode parses a JSON document into a value of type T.
func Decode[T any](data []byte) (*T, error) {
	var v T

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("cannot decode %T", v), err)
	}

	return &v, nil
}

// DecodeEntity parses a JSON document whose root is an entity of the given kind.
func DecodeEntity(kind EntityKind, data []byte) (Entity, error) {
	switch kind {
	case KindProject:
		return decodeAs[Project](data)
	case KindTask:
		return decodeAs[Task](data)
	case KindJob:
		return decodeAs[Job](data)
	case KindDataModel:
		return decodeAs[DataModel](data)
	case KindSchema:
		return decodeAs[Schema](data)
	case KindMapping:
		return decodeAs[Mapping](data)
	case KindFunction:
		return decodeAs[Function](data)
	case KindComponent:
		return decodeAs[Component](data)
	case KindFilter:
		return decodeAs[Filter](data)
	case KindAttributePath:
		return decodeAs[AttributePath](data)
	case KindAttribute:
		return decodeAs[Attribute](data)
	default:
		return nil, domain.NewInvalidDocument(fmt.Sprintf("%s cannot be submitted as a document root", kind), nil)
	}
}

func decodeAs[T any, P interface {
	*T
	Entity
}](data []byte) (Entity, error) {
	v, err := Decode[T](data)
	if err != nil {
		return nil, err
	}

	return P(v), nil
}
