package domain

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds_SurviveWrapping(t *testing.T) {
	err := errors.Wrap(NewUnresolvedReference("Attribute", -3, "dummy id never defined"), "submit")

	var unresolved *UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, int64(-3), unresolved.ID)
	assert.Equal(t, "Attribute", unresolved.Kind)
	assert.Contains(t, err.Error(), "unresolved Attribute reference -3")
	assert.True(t, IsClientError(err))
}

func TestCyclicEvaluationError_Message(t *testing.T) {
	err := NewCyclicEvaluation("t1", []string{"a", "b", "a"})
	assert.EqualError(t, err, `cyclic evaluation in transformation "t1": a -> b -> a`)
	assert.True(t, IsClientError(err))
}

func TestSchemaMismatchError_Message(t *testing.T) {
	err := NewSchemaMismatch("m", "s", "dc:titel", []string{"dc:title"})
	assert.EqualError(t, err,
		`mapping "m": attribute path "dc:titel" is not part of schema "s" (did you mean dc:title?)`)
}

func TestExternalStoreError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExternalStore("graphdb", "get objects", cause)

	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsClientError(err))
	assert.EqualError(t, err, "graphdb get objects failed: connection refused")
}

func TestFailureThresholdError_Message(t *testing.T) {
	err := NewFailureThreshold(3, 4, 0.5)
	assert.EqualError(t, err, "3 of 4 records failed, exceeding the allowed failure rate 0.50")
}
