// Package schema builds schemas from observed attribute paths.
//
// A PathHelper is the flat form of an attribute path: the attribute URIs
// from the record root to a field, plus optional required/multivalue flags.
// Helpers are collected into a Trie, which shares common prefixes. Induce
// walks the trie one level at a time and renders a JSON-Schema-like Document
// in which every node is keyed by its attribute URI; MintSchema turns the
// same trie into a model.Schema whose entities carry fresh dummy ids, ready
// to be submitted for persistence.
//
// # Path Syntax
//
// The wire form of a path joins attribute URIs with U+001E:
//
//	http://purl.org/dc/terms/creator␞http://xmlns.com/foaf/0.1/name
//
// # Arrays
//
// Whether a node renders as an array is decided by an ArrayPolicy. The
// default policy only trusts explicit multivalue flags.
package schema
