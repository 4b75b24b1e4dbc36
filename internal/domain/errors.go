// Package domain defines the error kinds reported by resolution, compilation
// and execution.
//
// All kinds are plain structs so callers can match them with errors.As; the
// wrapping helpers from github.com/cockroachdb/errors keep them reachable
// through any amount of added context.
package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// UnresolvedReferenceError reports an identifier that names no entity: a
// positive id missing from the store, or a dummy id that is referenced but
// never defined in the submitted document.
type UnresolvedReferenceError struct {
	Kind string // entity kind, e.g. "Attribute"
	ID   int64
	// Reason is a short explanation ("not found", "dummy id never defined").
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference %d: %s", e.Kind, e.ID, e.Reason)
}

// CyclicEvaluationError reports a cycle among the evaluation edges of a
// transformation. Chain lists the component names along the cycle, with the
// first element repeated at the end.
type CyclicEvaluationError struct {
	Transformation string
	Chain          []string
}

func (e *CyclicEvaluationError) Error() string {
	return fmt.Sprintf("cyclic evaluation in transformation %q: %s",
		e.Transformation, strings.Join(e.Chain, " -> "))
}

// SchemaMismatchError reports an attribute path that a schema does not contain.
type SchemaMismatchError struct {
	Mapping     string
	Schema      string
	Path        string
	Suggestions []string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("mapping %q: attribute path %q is not part of schema %q", e.Mapping, e.Path, e.Schema)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}

	return msg
}

// RecordFieldMissingError reports that a record lacks a required input.
// It is normally carried as a per-record diagnostic, not returned.
type RecordFieldMissingError struct {
	RecordID string
	Path     string
}

func (e *RecordFieldMissingError) Error() string {
	return fmt.Sprintf("record %q has no value for required path %q", e.RecordID, e.Path)
}

// ExternalStoreError reports a failure of a collaborating store.
type ExternalStoreError struct {
	Store     string // "sqlite", "graphdb", ...
	Operation string
	Cause     error
}

func (e *ExternalStoreError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Store, e.Operation, e.Cause)
}

func (e *ExternalStoreError) Unwrap() error {
	return e.Cause
}

// FailureThresholdError aborts a job whose record failure rate got too high.
type FailureThresholdError struct {
	Failed    int
	Processed int
	Limit     float64
}

func (e *FailureThresholdError) Error() string {
	return fmt.Sprintf("%d of %d records failed, exceeding the allowed failure rate %.2f",
		e.Failed, e.Processed, e.Limit)
}

// InvalidDocumentError reports a submission document that cannot be decoded.
type InvalidDocumentError struct {
	Message string
	Cause   error
}

func (e *InvalidDocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid document: %s (%v)", e.Message, e.Cause)
	}

	return "invalid document: " + e.Message
}

func (e *InvalidDocumentError) Unwrap() error {
	return e.Cause
}

// NewUnresolvedReference creates a new UnresolvedReferenceError.
func NewUnresolvedReference(kind string, id int64, reason string) error {
	return errors.WithStack(&UnresolvedReferenceError{Kind: kind, ID: id, Reason: reason})
}

// NewCyclicEvaluation creates a new CyclicEvaluationError.
func NewCyclicEvaluation(transformation string, chain []string) error {
	return errors.WithStack(&CyclicEvaluationError{Transformation: transformation, Chain: chain})
}

// NewSchemaMismatch creates a new SchemaMismatchError.
func NewSchemaMismatch(mapping, schema, path string, suggestions []string) error {
	return errors.WithStack(&SchemaMismatchError{
		Mapping:     mapping,
		Schema:      schema,
		Path:        path,
		Suggestions: suggestions,
	})
}

// NewRecordFieldMissing creates a new RecordFieldMissingError.
func NewRecordFieldMissing(recordID, path string) error {
	return &RecordFieldMissingError{RecordID: recordID, Path: path}
}

// NewExternalStore creates a new ExternalStoreError.
func NewExternalStore(store, operation string, cause error) error {
	return errors.WithStack(&ExternalStoreError{Store: store, Operation: operation, Cause: cause})
}

// NewFailureThreshold creates a new FailureThresholdError.
func NewFailureThreshold(failed, processed int, limit float64) error {
	return errors.WithStack(&FailureThresholdError{Failed: failed, Processed: processed, Limit: limit})
}

// NewInvalidDocument creates a new InvalidDocumentError.
func NewInvalidDocument(message string, cause error) error {
	return errors.WithStack(&InvalidDocumentError{Message: message, Cause: cause})
}

// IsClientError reports whether err stems from bad input rather than from a
// failing collaborator.
func IsClientError(err error) bool {
	var (
		unresolved *UnresolvedReferenceError
		cyclic     *CyclicEvaluationError
		mismatch   *SchemaMismatchError
		invalid    *InvalidDocumentError
	)

	return errors.As(err, &unresolved) ||
		errors.As(err, &cyclic) ||
		errors.As(err, &mismatch) ||
		errors.As(err, &invalid)
}
