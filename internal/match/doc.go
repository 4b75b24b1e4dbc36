// Package match provides name normalization and edit-distance scoring used to
// suggest attribute paths when a mapping refers to one the schema does not have.
//
// Key functions:
//   - LocalName: extracts the readable tail of an attribute URI
//   - NormalizeIdent: normalizes identifiers for fuzzy matching
//   - Levenshtein: computes edit distance between strings
//   - Suggest: ranks known names by similarity to an unknown one
package match
