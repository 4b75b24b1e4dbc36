package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_AddAndMerge(t *testing.T) {
	var d Diagnostics
	assert.True(t, d.Empty())
	assert.NoError(t, d.Error())

	d.AddWarning(CodeUnusedParameter, "parameter x is not used", "m1", "")
	assert.False(t, d.HasErrors())
	assert.False(t, d.Empty())

	var other Diagnostics
	other.AddError(CodeRecordFieldMissing, "no value", "m2", "title")
	other.AddInfo(CodeEmptyResult, "nothing produced", "", "")

	d.Merge(other)
	assert.True(t, d.HasErrors())
	assert.Len(t, d.Warnings, 1)
	assert.Len(t, d.Infos, 1)

	err := d.Error()
	require.Error(t, err)
	assert.Equal(t, "[m2] title: [record_field_missing] no value", err.Error())
}

func TestDiagnostic_StringWithSuggestions(t *testing.T) {
	d := Diagnostic{Code: "x", Message: "unknown path", Suggestions: []string{"title", "titel"}}
	assert.Equal(t, "[x] unknown path (did you mean title, titel?)", d.String())
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(42).String())
}

func TestSeverity_TextRoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityInfo, SeverityWarning, SeverityError} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var got Severity
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	var s Severity
	assert.ErrorContains(t, s.UnmarshalText([]byte("fatal")), "fatal")
}

func TestDiagnostics_JSONRoundTrip(t *testing.T) {
	var d Diagnostics
	d.AddError(CodeFunctionFailed, "boom", "m", "title")

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"error"`)

	var got Diagnostics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, d, got)
}
