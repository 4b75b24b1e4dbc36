package model

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
)

// Graph indexes the entities of a linked document by kind and identifier.
type Graph struct {
	Root Entity

	defs      map[Ref]Entity
	undefined map[Ref]struct{}
	refs      map[Ref]struct{}
}

// Lookup returns the definition of the referenced entity.
func (g *Graph) Lookup(ref Ref) (Entity, bool) {
	e, ok := g.defs[ref]
	return e, ok
}

// Undefined returns references whose target is not defined in the document,
// sorted by kind and identifier.
func (g *Graph) Undefined() []Ref {
	return sortedRefs(g.undefined)
}

// References returns every identified entity mentioned by the document,
// defined or not, sorted by kind and identifier.
func (g *Graph) References() []Ref {
	return sortedRefs(g.refs)
}

// Definitions returns the defined entities of the given kind, ordered by id.
func (g *Graph) Definitions(kind EntityKind) []Entity {
	var out []Entity

	for ref, e := range g.defs {
		if ref.Kind == kind {
			out = append(out, e)
		}
	}

	slices.SortFunc(out, func(a, b Entity) int {
		return cmp.Compare(a.EntityID(), b.EntityID())
	})

	return out
}

func sortedRefs(set map[Ref]struct{}) []Ref {
	out := make([]Ref, 0, len(set))
	for r := range set {
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b Ref) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

type linker struct {
	defs      map[Ref]Entity
	undefined map[Ref]struct{}
	refs      map[Ref]struct{}
	dummyKind map[ID]EntityKind
	uriIDs    map[string]ID
	pathIDs   map[string]ID
	seen      map[Entity]bool
	err       error
}

// Link indexes every definition reachable from root and replaces every
// reference stub with its definition. Stubs without a definition are left in
// place and reported by Graph.Undefined.
//
// Link fails when the document is inconsistent: one dummy id used for two
// kinds, one identifier defined as two different types, or one attribute
// URI (attribute path) carrying two identities.
//
// Entities in known, typically loaded from a store, are indexed after the
// document so that stubs referring to them are replaced as well.
func Link(root Entity, known ...Entity) (*Graph, error) {
	l := &linker{
		defs:      make(map[Ref]Entity),
		undefined: make(map[Ref]struct{}),
		refs:      make(map[Ref]struct{}),
		dummyKind: make(map[ID]EntityKind),
		uriIDs:    make(map[string]ID),
		pathIDs:   make(map[string]ID),
		seen:      make(map[Entity]bool),
	}

	l.collect(root)

	for _, e := range known {
		l.collect(e)
	}

	if l.err != nil {
		return nil, l.err
	}

	l.seen = make(map[Entity]bool)
	root = l.relink(root)

	for _, e := range known {
		l.relink(e)
	}

	if l.err != nil {
		return nil, l.err
	}

	return &Graph{Root: root, defs: l.defs, undefined: l.undefined, refs: l.refs}, nil
}

// collect registers definitions in document order; the first definition of
// an identifier wins.
func (l *linker) collect(e Entity) {
	if isNil(e) || l.seen[e] || l.err != nil {
		return
	}

	l.seen[e] = true

	if id := e.EntityID(); id != 0 {
		ref := Ref{Kind: e.EntityKind(), ID: id}
		l.refs[ref] = struct{}{}

		if id.IsDummy() {
			if k, ok := l.dummyKind[id]; ok && k != ref.Kind {
				l.err = errors.Newf("dummy id %d is used for both %s and %s", id, k, ref.Kind)
				return
			}

			l.dummyKind[id] = ref.Kind
		}

		if !e.isStub() {
			l.define(ref, e)
		}
	}

	for _, c := range children(e) {
		l.collect(c)
	}
}

func (l *linker) define(ref Ref, e Entity) {
	if prev, ok := l.defs[ref]; ok {
		if !sameType(prev, e) {
			l.err = errors.Newf("%s %d is defined with two different shapes", ref.Kind, ref.ID)
		}

		return
	}

	l.defs[ref] = e

	switch v := e.(type) {
	case *Attribute:
		l.checkContent(l.uriIDs, v.URI, ref)
	case *AttributePath:
		l.checkContent(l.pathIDs, v.Key(), ref)
	}
}

func (l *linker) checkContent(ids map[string]ID, key string, ref Ref) {
	if key == "" {
		return
	}

	if prev, ok := ids[key]; ok && prev != ref.ID {
		l.err = errors.Newf("%s %q carries two identities: %d and %d", ref.Kind, key, prev, ref.ID)
		return
	}

	ids[key] = ref.ID
}

// relink swaps e for its definition and rewires the definition's fields.
func (l *linker) relink(e Entity) Entity {
	if isNil(e) {
		return e
	}

	if e.EntityID() != 0 {
		ref := Ref{Kind: e.EntityKind(), ID: e.EntityID()}
		if def, ok := l.defs[ref]; ok {
			e = def
		} else if e.isStub() {
			l.undefined[ref] = struct{}{}
			return e
		}
	}

	if l.seen[e] {
		return e
	}

	l.seen[e] = true

	switch v := e.(type) {
	case *Project:
		v.InputDataModel = link(l, v.InputDataModel)
		v.OutputDataModel = link(l, v.OutputDataModel)
		linkAll(l, v.Mappings)
		linkAll(l, v.Functions)
		v.SkipFilter = link(l, v.SkipFilter)
	case *Task:
		v.Job = link(l, v.Job)
		v.InputDataModel = link(l, v.InputDataModel)
		v.OutputDataModel = link(l, v.OutputDataModel)
	case *Job:
		linkAll(l, v.Mappings)
		v.SkipFilter = link(l, v.SkipFilter)
	case *DataModel:
		v.Schema = link(l, v.Schema)
	case *Schema:
		linkAll(l, v.AttributePaths)
	case *SchemaAttributePathInstance:
		v.AttributePath = link(l, v.AttributePath)
	case *MappingAttributePathInstance:
		v.AttributePath = link(l, v.AttributePath)
		v.Filter = link(l, v.Filter)
	case *AttributePath:
		linkAll(l, v.Attributes)
	case *Mapping:
		linkAll(l, v.InputAttributePaths)
		v.OutputAttributePath = link(l, v.OutputAttributePath)
		v.Transformation = link(l, v.Transformation)
	case *Component:
		v.Function = link(l, v.Function)
		linkAll(l, v.InputComponents)
		linkAll(l, v.OutputComponents)
	case *Function:
		linkAll(l, v.Components)
	}

	return e
}

func link[P interface {
	comparable
	Entity
}](l *linker, p P) P {
	var zero P
	if p == zero {
		return p
	}

	out, ok := l.relink(p).(P)
	if !ok {
		l.err = errors.Newf("%s %d is defined with two different shapes", p.EntityKind(), p.EntityID())
		return p
	}

	return out
}

func linkAll[P interface {
	comparable
	Entity
}](l *linker, ps []P) {
	for i, p := range ps {
		ps[i] = link(l, p)
	}
}

// children lists the entities directly referenced by e.
func children(e Entity) []Entity {
	var out []Entity

	add := func(c Entity) {
		if !isNil(c) {
			out = append(out, c)
		}
	}

	switch v := e.(type) {
	case *Project:
		add(v.InputDataModel)
		add(v.OutputDataModel)

		for _, m := range v.Mappings {
			add(m)
		}

		for _, f := range v.Functions {
			add(f)
		}

		add(v.SkipFilter)
	case *Task:
		add(v.Job)
		add(v.InputDataModel)
		add(v.OutputDataModel)
	case *Job:
		for _, m := range v.Mappings {
			add(m)
		}

		add(v.SkipFilter)
	case *DataModel:
		add(v.Schema)
	case *Schema:
		for _, i := range v.AttributePaths {
			add(i)
		}
	case *SchemaAttributePathInstance:
		add(v.AttributePath)
	case *MappingAttributePathInstance:
		add(v.AttributePath)
		add(v.Filter)
	case *AttributePath:
		for _, a := range v.Attributes {
			add(a)
		}
	case *Mapping:
		for _, i := range v.InputAttributePaths {
			add(i)
		}

		add(v.OutputAttributePath)
		add(v.Transformation)
	case *Component:
		add(v.Function)

		for _, c := range v.InputComponents {
			add(c)
		}

		for _, c := range v.OutputComponents {
			add(c)
		}
	case *Function:
		for _, c := range v.Components {
			add(c)
		}
	}

	return out
}

// Children exposes the direct references of e for walkers in other packages.
func Children(e Entity) []Entity {
	return children(e)
}

func sameType(a, b Entity) bool {
	switch a.(type) {
	case *MappingAttributePathInstance:
		_, ok := b.(*MappingAttributePathInstance)
		return ok
	case *SchemaAttributePathInstance:
		_, ok := b.(*SchemaAttributePathInstance)
		return ok
	default:
		return a.EntityKind() == b.EntityKind()
	}
}

// isNil catches typed nil pointers stored in an Entity interface.
func isNil(e Entity) bool {
	if e == nil {
		return true
	}

	switch v := e.(type) {
	case *Project:
		return v == nil
	case *Task:
		return v == nil
	case *Job:
		return v == nil
	case *DataModel:
		return v == nil
	case *Schema:
		return v == nil
	case *SchemaAttributePathInstance:
		return v == nil
	case *MappingAttributePathInstance:
		return v == nil
	case *AttributePath:
		return v == nil
	case *Attribute:
		return v == nil
	case *Filter:
		return v == nil
	case *Mapping:
		return v == nil
	case *Component:
		return v == nil
	case *Function:
		return v == nil
	default:
		return false
	}
}
