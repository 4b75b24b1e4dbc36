package resolve

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"metadata-mapper/internal/common"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// Submission is the outcome of a successful Submit.
type Submission struct {
	Kind model.EntityKind
	// ID is the durable id of the document root.
	ID model.ID
	// Document is the submitted document with every dummy id replaced.
	Document []byte
	// Resolved maps each dummy id to the id it was replaced with.
	Resolved map[model.ID]model.ID
	// Root is the linked entity graph, carrying durable ids.
	Root model.Entity
}

// Submit resolves and persists a JSON or YAML document whose root is an
// entity of the given kind. Nothing is persisted unless every reference
// resolves.
func Submit(
	ctx context.Context,
	store TxStore,
	kind model.EntityKind,
	doc []byte,
	log logrus.FieldLogger,
) (_ *Submission, err error) {
	data, err := model.LoadDocument(doc)
	if err != nil {
		return nil, err
	}

	raw, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}

	root, err := model.DecodeEntity(kind, data)
	if err != nil {
		return nil, err
	}

	graph, err := model.Link(root)
	if err != nil {
		return nil, domain.NewInvalidDocument("inconsistent entity graph", err)
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, domain.NewExternalStore("entity store", "begin", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.WithSecondaryError(err, rbErr)
			}
		}
	}()

	if err = validate(ctx, tx, graph); err != nil {
		return nil, err
	}

	candidates := CollectDummyIDs(raw)
	r := NewResolver(tx, log)

	if raw, err = r.Resolve(ctx, graph.Root, raw, candidates); err != nil {
		return nil, err
	}

	if len(candidates) > 0 {
		left := common.SortedKeys(candidates)
		err = domain.NewUnresolvedReference("entity", int64(left[0]), "dummy id is not attached to any entity")

		return nil, err
	}

	out, err := encodeRaw(raw)
	if err != nil {
		return nil, err
	}

	rootID := graph.Root.EntityID()
	if err = tx.SaveDocument(ctx, kind, rootID, out); err != nil {
		return nil, domain.NewExternalStore("entity store", "save document", err)
	}

	if err = saveDefinitions(ctx, tx, graph, kind); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, domain.NewExternalStore("entity store", "commit", err)
	}

	log.WithFields(logrus.Fields{
		"kind":     kind.String(),
		"id":       int64(rootID),
		"resolved": len(r.Resolved()),
	}).Info("document submitted")

	return &Submission{
		Kind:     kind,
		ID:       rootID,
		Document: out,
		Resolved: r.Resolved(),
		Root:     graph.Root,
	}, nil
}

// standalone lists kinds whose definitions are also saved on their own, so
// that later documents may refer to them by id alone.
var standalone = []model.EntityKind{model.KindDataModel, model.KindSchema, model.KindFunction}

func saveDefinitions(ctx context.Context, tx Tx, g *model.Graph, rootKind model.EntityKind) error {
	for _, kind := range standalone {
		if kind == rootKind {
			continue
		}

		for _, e := range g.Definitions(kind) {
			doc, err := json.Marshal(e)
			if err != nil {
				return errors.Wrapf(err, "encode %s %d", kind, e.EntityID())
			}

			if err := tx.SaveDocument(ctx, kind, e.EntityID(), doc); err != nil {
				return domain.NewExternalStore("entity store", "save document", err)
			}
		}
	}

	return nil
}

// validate checks that positive ids exist and that dummy ids are defined.
func validate(ctx context.Context, store EntityStore, g *model.Graph) error {
	undefined := g.Undefined()

	for _, ref := range undefined {
		if ref.ID.IsDummy() {
			return domain.NewUnresolvedReference(ref.Kind.String(), int64(ref.ID), "dummy id is never defined")
		}
	}

	for _, ref := range g.References() {
		if ref.ID.IsDummy() {
			continue
		}

		ok, err := store.Exists(ctx, ref.Kind, ref.ID)
		if err != nil {
			return domain.NewExternalStore("entity store", "exists", err)
		}

		if !ok {
			return domain.NewUnresolvedReference(ref.Kind.String(), int64(ref.ID), "not found")
		}
	}

	if g.Root.EntityID() == 0 {
		return domain.NewInvalidDocument("document root has no id", nil)
	}

	return nil
}

func decodeRaw(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewInvalidDocument("malformed JSON", err)
	}

	if _, ok := raw.(map[string]any); !ok {
		return nil, domain.NewInvalidDocument("document root must be an object", nil)
	}

	return raw, nil
}

func encodeRaw(raw any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(raw); err != nil {
		return nil, errors.Wrap(err, "encode resolved document")
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
