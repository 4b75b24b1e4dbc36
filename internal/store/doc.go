// Package store persists entities, submitted documents and records.
//
// Two implementations share one contract: SQLite, backed by
// github.com/mattn/go-sqlite3, and Memory, used for dry runs and tests.
// Both hand out durable ids from a single sequence, de-duplicate
// content-addressed entities per kind, and act as the record source and
// sink of the job executor.
package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

var errTxDone = errors.New("transaction has already been committed or rolled back")

// schemaOf extracts the schema of a stored data model document. A schema
// stored only as a reference is looked up through load.
func schemaOf(
	dmID model.ID,
	dmDoc []byte,
	load func(kind model.EntityKind, id model.ID) ([]byte, bool, error),
) (*model.Schema, error) {
	dm, err := model.Decode[model.DataModel](dmDoc)
	if err != nil {
		return nil, err
	}

	if dm.Schema == nil {
		return nil, domain.NewUnresolvedReference(model.KindSchema.String(), int64(dmID), "data model has no schema")
	}

	if len(dm.Schema.AttributePaths) > 0 {
		return dm.Schema, nil
	}

	doc, ok, err := load(model.KindSchema, dm.Schema.ID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return dm.Schema, nil
	}

	var s model.Schema
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, errors.Wrapf(err, "decode schema %d", dm.Schema.ID)
	}

	return &s, nil
}
