// Package resolve replaces client-chosen dummy ids in a submitted document
// with durable ids.
//
// A submission is resolved in one store transaction: references are
// validated, every entity carrying a dummy id is created, every "id" field
// holding that dummy id is rewritten in the raw document, and the rewritten
// document is saved. Any failure rolls the transaction back, so a document is
// either persisted completely or not at all.
//
// Traversal is dispatched through a registry keyed by entity kind. Each
// entity is visited at most once per call, which keeps cyclic component
// graphs finite.
package resolve
