package resolve

import (
	"context"

	"metadata-mapper/internal/model"
)

// EntityStore creates entities and checks for their existence.
type EntityStore interface {
	// Create persists a new entity and returns its durable id. A non-empty
	// contentKey makes creation idempotent: creating the same kind and key
	// twice returns the first id.
	Create(ctx context.Context, kind model.EntityKind, contentKey string) (model.ID, error)
	Exists(ctx context.Context, kind model.EntityKind, id model.ID) (bool, error)
}

// Tx is an EntityStore whose writes become visible on Commit.
type Tx interface {
	EntityStore
	SaveDocument(ctx context.Context, kind model.EntityKind, id model.ID, doc []byte) error
	Commit() error
	Rollback() error
}

// TxStore opens transactions.
type TxStore interface {
	Begin(ctx context.Context) (Tx, error)
}

// ContentKey returns the de-duplication key of content-addressed entities
// and "" for all others.
func ContentKey(e model.Entity) string {
	switch v := e.(type) {
	case *model.Attribute:
		return v.URI
	case *model.AttributePath:
		return v.Key()
	default:
		return ""
	}
}
