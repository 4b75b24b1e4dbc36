package resolve

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// handlerFunc settles one entity and descends into what it references.
type handlerFunc func(ctx context.Context, r *Resolver, e model.Entity) error

// handlers is the per-kind traversal table.
var handlers map[model.EntityKind]handlerFunc

func init() {
	handlers = map[model.EntityKind]handlerFunc{
		model.KindProject:               resolveProject,
		model.KindTask:                  resolveTask,
		model.KindJob:                   resolveJob,
		model.KindDataModel:             resolveDataModel,
		model.KindSchema:                resolveSchema,
		model.KindAttributePathInstance: resolveInstance,
		model.KindAttributePath:         resolveAttributePath,
		model.KindAttribute:             resolveLeaf,
		model.KindFilter:                resolveLeaf,
		model.KindMapping:               resolveMapping,
		model.KindComponent:             resolveComponent,
		model.KindFunction:              resolveFunction,
	}
}

// Resolver replaces dummy ids for one document. It is not safe for
// concurrent use and must not be reused across documents.
type Resolver struct {
	store      EntityStore
	log        logrus.FieldLogger
	candidates map[model.ID]struct{}
	visited    map[model.Entity]struct{}
	resolved   map[model.ID]model.ID
}

// NewResolver returns a resolver writing through store.
func NewResolver(store EntityStore, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		store:    store,
		log:      log,
		visited:  make(map[model.Entity]struct{}),
		resolved: make(map[model.ID]model.ID),
	}
}

// Resolve creates every entity reachable from root whose id is in
// candidates, rewrites raw accordingly and removes settled ids from
// candidates. root must be linked (see model.Link). The returned raw
// document is the input, rewritten in place.
func (r *Resolver) Resolve(
	ctx context.Context,
	root model.Entity,
	raw any,
	candidates map[model.ID]struct{},
) (any, error) {
	r.candidates = candidates

	if err := r.visit(ctx, root); err != nil {
		return nil, err
	}

	rewriteIDs(raw, r.resolved)

	return raw, nil
}

// Resolved maps each settled dummy id to its durable id.
func (r *Resolver) Resolved() map[model.ID]model.ID {
	return r.resolved
}

func (r *Resolver) visit(ctx context.Context, e model.Entity) error {
	if e == nil || len(r.candidates) == 0 {
		return nil
	}

	if _, ok := r.visited[e]; ok {
		return nil
	}

	r.visited[e] = struct{}{}

	if err := ctx.Err(); err != nil {
		return err
	}

	h, ok := handlers[e.EntityKind()]
	if !ok {
		return errors.AssertionFailedf("no resolver registered for %s", e.EntityKind())
	}

	return h(ctx, r, e)
}

// settle creates e when its id is a candidate.
func (r *Resolver) settle(ctx context.Context, e model.Entity) error {
	dummy := e.EntityID()
	if _, ok := r.candidates[dummy]; !ok {
		return nil
	}

	kind := e.EntityKind()

	id, err := r.store.Create(ctx, kind, ContentKey(e))
	if err != nil {
		return domain.NewExternalStore("entity store", "create "+kind.String(), err)
	}

	setID(e, id)
	delete(r.candidates, dummy)
	r.resolved[dummy] = id

	r.log.WithFields(logrus.Fields{
		"kind":  kind.String(),
		"dummy": int64(dummy),
		"id":    int64(id),
	}).Debug("settled dummy id")

	return nil
}

func (r *Resolver) visitAll(ctx context.Context, es ...model.Entity) error {
	for _, e := range es {
		if err := r.visit(ctx, e); err != nil {
			return err
		}
	}

	return nil
}

func resolveLeaf(ctx context.Context, r *Resolver, e model.Entity) error {
	return r.settle(ctx, e)
}

func resolveProject(ctx context.Context, r *Resolver, e model.Entity) error {
	p := e.(*model.Project)
	if err := r.settle(ctx, p); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entity(p.InputDataModel), entity(p.OutputDataModel)); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entities(p.Mappings)...); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entities(p.Functions)...); err != nil {
		return err
	}

	return r.visit(ctx, entity(p.SkipFilter))
}

func resolveTask(ctx context.Context, r *Resolver, e model.Entity) error {
	t := e.(*model.Task)
	if err := r.settle(ctx, t); err != nil {
		return err
	}

	return r.visitAll(ctx, entity(t.Job), entity(t.InputDataModel), entity(t.OutputDataModel))
}

func resolveJob(ctx context.Context, r *Resolver, e model.Entity) error {
	j := e.(*model.Job)
	if err := r.settle(ctx, j); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entities(j.Mappings)...); err != nil {
		return err
	}

	return r.visit(ctx, entity(j.SkipFilter))
}

func resolveDataModel(ctx context.Context, r *Resolver, e model.Entity) error {
	d := e.(*model.DataModel)
	if err := r.settle(ctx, d); err != nil {
		return err
	}

	return r.visit(ctx, entity(d.Schema))
}

func resolveSchema(ctx context.Context, r *Resolver, e model.Entity) error {
	s := e.(*model.Schema)
	if err := r.settle(ctx, s); err != nil {
		return err
	}

	return r.visitAll(ctx, entities(s.AttributePaths)...)
}

func resolveInstance(ctx context.Context, r *Resolver, e model.Entity) error {
	if err := r.settle(ctx, e); err != nil {
		return err
	}

	switch v := e.(type) {
	case *model.MappingAttributePathInstance:
		return r.visitAll(ctx, entity(v.AttributePath), entity(v.Filter))
	case *model.SchemaAttributePathInstance:
		return r.visit(ctx, entity(v.AttributePath))
	default:
		return errors.AssertionFailedf("unexpected attribute path instance %T", e)
	}
}

func resolveAttributePath(ctx context.Context, r *Resolver, e model.Entity) error {
	p := e.(*model.AttributePath)

	// Attributes first: a path is only meaningful once its attributes exist.
	if err := r.visitAll(ctx, entities(p.Attributes)...); err != nil {
		return err
	}

	return r.settle(ctx, p)
}

func resolveMapping(ctx context.Context, r *Resolver, e model.Entity) error {
	m := e.(*model.Mapping)
	if err := r.settle(ctx, m); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entities(m.InputAttributePaths)...); err != nil {
		return err
	}

	return r.visitAll(ctx, entity(m.OutputAttributePath), entity(m.Transformation))
}

func resolveComponent(ctx context.Context, r *Resolver, e model.Entity) error {
	c := e.(*model.Component)
	if err := r.settle(ctx, c); err != nil {
		return err
	}

	if err := r.visit(ctx, entity(c.Function)); err != nil {
		return err
	}

	if err := r.visitAll(ctx, entities(c.InputComponents)...); err != nil {
		return err
	}

	return r.visitAll(ctx, entities(c.OutputComponents)...)
}

func resolveFunction(ctx context.Context, r *Resolver, e model.Entity) error {
	f := e.(*model.Function)
	if err := r.settle(ctx, f); err != nil {
		return err
	}

	if !f.IsTransformation() {
		return nil
	}

	return r.visitAll(ctx, entities(f.Components)...)
}

// entity converts a possibly nil pointer into an interface that is nil too.
func entity[P interface {
	comparable
	model.Entity
}](p P) model.Entity {
	var zero P
	if p == zero {
		return nil
	}

	return p
}

func entities[P interface {
	comparable
	model.Entity
}](ps []P) []model.Entity {
	out := make([]model.Entity, 0, len(ps))
	for _, p := range ps {
		if e := entity(p); e != nil {
			out = append(out, e)
		}
	}

	return out
}

func setID(e model.Entity, id model.ID) {
	switch v := e.(type) {
	case *model.Project:
		v.ID = id
	case *model.Task:
		v.ID = id
	case *model.Job:
		v.ID = id
	case *model.DataModel:
		v.ID = id
	case *model.Schema:
		v.ID = id
	case *model.SchemaAttributePathInstance:
		v.ID = id
	case *model.MappingAttributePathInstance:
		v.ID = id
	case *model.AttributePath:
		v.ID = id
	case *model.Attribute:
		v.ID = id
	case *model.Filter:
		v.ID = id
	case *model.Mapping:
		v.ID = id
	case *model.Component:
		v.ID = id
	case *model.Function:
		v.ID = id
	}
}
