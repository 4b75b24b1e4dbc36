package model

import (
	"github.com/cockroachdb/errors"
)

//go:generate go tool stringer -type=EntityKind -trimprefix=Kind -output=kind_string.go

// EntityKind identifies the type of a persisted entity.
type EntityKind int

const (
	KindUnknown EntityKind = iota
	KindProject
	KindDataModel
	KindSchema
	KindAttribute
	KindAttributePath
	KindAttributePathInstance
	KindFilter
	KindFunction
	KindComponent
	KindMapping
	KindJob
	KindTask
)

// Kinds lists every valid entity kind in declaration order.
var Kinds = []EntityKind{
	KindProject,
	KindDataModel,
	KindSchema,
	KindAttribute,
	KindAttributePath,
	KindAttributePathInstance,
	KindFilter,
	KindFunction,
	KindComponent,
	KindMapping,
	KindJob,
	KindTask,
}

// ParseEntityKind is the inverse of EntityKind.String.
func ParseEntityKind(s string) (EntityKind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}

	return KindUnknown, errors.Newf("unknown entity kind %q", s)
}

// MarshalText renders the kind by name.
func (i EntityKind) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText parses a kind name.
func (i *EntityKind) UnmarshalText(text []byte) error {
	k, err := ParseEntityKind(string(text))
	if err != nil {
		return err
	}

	*i = k

	return nil
}

// ID identifies an entity. Negative values are dummy ids.
type ID int64

// IsDummy reports whether id is a client-chosen placeholder.
func (id ID) IsDummy() bool {
	return id < 0
}

// Ref names an entity by kind and identifier.
type Ref struct {
	Kind EntityKind
	ID   ID
}
