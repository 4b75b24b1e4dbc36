package resolve

import (
	"context"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// DocumentLoader reads documents saved by Submit.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, kind model.EntityKind, id model.ID) ([]byte, bool, error)
}

// Hydrate links root, filling references the document leaves undefined with
// definitions loaded from the store. Loaded definitions may refer to further
// stored entities; loading repeats until nothing new is found. References
// without a stored document stay undefined.
func Hydrate(ctx context.Context, loader DocumentLoader, root model.Entity) (*model.Graph, error) {
	var known []model.Entity

	tried := make(map[model.Ref]bool)

	for {
		g, err := model.Link(root, known...)
		if err != nil {
			return nil, domain.NewInvalidDocument(err.Error(), err)
		}

		loaded := 0

		for _, ref := range g.Undefined() {
			if ref.ID.IsDummy() || tried[ref] {
				continue
			}

			tried[ref] = true

			doc, ok, err := loader.LoadDocument(ctx, ref.Kind, ref.ID)
			if err != nil {
				return nil, domain.NewExternalStore("entity store", "load document", err)
			}

			if !ok {
				continue
			}

			e, err := model.DecodeEntity(ref.Kind, doc)
			if err != nil {
				return nil, errors.Wrapf(err, "stored %s %d", ref.Kind, ref.ID)
			}

			known = append(known, e)
			loaded++
		}

		if loaded == 0 {
			return g, nil
		}
	}
}
