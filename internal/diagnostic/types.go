package diagnostic

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/common"
)

// Codes emitted by the compiler and the executor.
const (
	CodeRecordFieldMissing = "record_field_missing"
	CodeFunctionFailed     = "function_failed"
	CodeFanOutLimited      = "fan_out_limited"
	CodeEmptyResult        = "empty_result"
	CodeUnusedParameter    = "unused_parameter"
	CodeAmbiguousTerminal  = "ambiguous_terminal"
)

// Diagnostics holds all diagnostic information for one unit of work.
type Diagnostics struct {
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
	Infos    []Diagnostic `json:"infos,omitempty"`
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	// Code is a stable identifier for this type of diagnostic.
	Code    string `json:"code"`
	Message string `json:"message"`
	// Mapping names the mapping this relates to (if any).
	Mapping string `json:"mapping,omitempty"`
	// Path is the attribute path this relates to (if any), in readable form.
	Path        string   `json:"path,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return errors.Newf("unknown severity %q", text)
	}

	return nil
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, mapping, path string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		Mapping:  mapping,
		Path:     path,
	})
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, mapping, path string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Mapping:  mapping,
		Path:     path,
	})
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, mapping, path string) {
	d.Infos = append(d.Infos, Diagnostic{
		Severity: SeverityInfo,
		Code:     code,
		Message:  message,
		Mapping:  mapping,
		Path:     path,
	})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Empty reports whether no diagnostics of any severity were recorded.
func (d *Diagnostics) Empty() bool {
	return len(d.Errors)+len(d.Warnings)+len(d.Infos) == 0
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// Error returns a combined error from all error diagnostics, or nil if there are none.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Mapping != "" {
		prefix = append(prefix, "["+d.Mapping+"]")
	}

	if d.Path != "" {
		prefix = append(prefix, d.Path)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(d.Suggestions, ", ") + "?)"
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
