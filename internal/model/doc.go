// Package model defines the entities of a mapping project and the helpers
// that turn a submitted document into a navigable graph.
//
// A submitted document is a JSON (or YAML) tree. Any entity may appear
// either as a full definition or as a reference stub holding nothing but
// its identifier:
//
//	{"id": -4}
//
// Identifiers are int64. Positive values name persisted entities, negative
// values are dummy ids chosen by the client for entities that do not exist
// yet, and zero marks value objects that are never registered.
//
// Link canonicalizes every stub to the definition carrying the same kind
// and identifier, so the resulting graph may contain reference cycles
// (a component listing itself among its output components, for example).
// Code walking a linked graph must guard against revisiting entities.
package model
