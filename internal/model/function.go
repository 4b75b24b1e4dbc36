package model

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/common"
)

// FunctionKind tells plain functions apart from transformations.
type FunctionKind int

const (
	// FunctionKindFunction is a primitive function evaluated by name.
	FunctionKindFunction FunctionKind = iota
	// FunctionKindTransformation is a function built from a component graph.
	FunctionKindTransformation
)

// String returns the wire name of the kind.
func (k FunctionKind) String() string {
	switch k {
	case FunctionKindFunction:
		return "Function"
	case FunctionKindTransformation:
		return "Transformation"
	default:
		return common.UnknownStr
	}
}

// MarshalText renders the kind by its wire name.
func (k FunctionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a wire name; empty input means a plain function.
func (k *FunctionKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "Function":
		*k = FunctionKindFunction
	case "Transformation":
		*k = FunctionKindTransformation
	default:
		return errors.Newf("unknown function type %q", string(text))
	}

	return nil
}

// Function is either a primitive function or a transformation.
// Components is only meaningful for transformations.
type Function struct {
	ID          ID           `json:"id"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Kind        FunctionKind `json:"type"`
	// Parameters are the formal parameter names.
	Parameters []string `json:"parameters,omitempty"`
	// FunctionDescription is an opaque descriptor kept for clients.
	FunctionDescription json.RawMessage `json:"function_description,omitempty"`
	Components          []*Component    `json:"components,omitempty"`
}

// IsTransformation reports whether the function is built from components.
func (f *Function) IsTransformation() bool {
	return f != nil && f.Kind == FunctionKindTransformation
}

// HasParameter reports whether name is one of the formal parameters.
func (f *Function) HasParameter(name string) bool {
	for _, p := range f.Parameters {
		if p == name {
			return true
		}
	}

	return false
}

// Component is one node of a transformation. ParameterMappings maps formal
// parameter names of Function to literal values or input references.
type Component struct {
	ID                ID                `json:"id"`
	Name              string            `json:"name,omitempty"`
	Description       string            `json:"description,omitempty"`
	Function          *Function         `json:"function,omitempty"`
	ParameterMappings map[string]string `json:"parameter_mappings,omitempty"`
	InputComponents   []*Component      `json:"input_components,omitempty"`
	OutputComponents  []*Component      `json:"output_components,omitempty"`
}

type componentRef struct {
	ID ID `json:"id"`
}

// MarshalJSON writes neighbouring components as {"id": n} references so that
// linked, cyclic component graphs serialize. A transformation used as the
// component's function is written as a reference too.
func (c *Component) MarshalJSON() ([]byte, error) {
	type plain Component

	refs := func(cs []*Component) []componentRef {
		if len(cs) == 0 {
			return nil
		}

		out := make([]componentRef, 0, len(cs))
		for _, n := range cs {
			out = append(out, componentRef{ID: n.ID})
		}

		return out
	}

	var function any

	switch {
	case c.Function.IsTransformation():
		function = componentRef{ID: c.Function.ID}
	case c.Function != nil:
		function = c.Function
	}

	return json.Marshal(struct {
		*plain
		Function         any            `json:"function,omitempty"`
		InputComponents  []componentRef `json:"input_components,omitempty"`
		OutputComponents []componentRef `json:"output_components,omitempty"`
	}{
		plain:            (*plain)(c),
		Function:         function,
		InputComponents:  refs(c.InputComponents),
		OutputComponents: refs(c.OutputComponents),
	})
}

func (f *Function) EntityKind() EntityKind  { return KindFunction }
func (c *Component) EntityKind() EntityKind { return KindComponent }

func (f *Function) EntityID() ID  { return f.ID }
func (c *Component) EntityID() ID { return c.ID }

func (f *Function) isStub() bool {
	return f.Name == "" && len(f.Parameters) == 0 && len(f.Components) == 0 && f.Kind == FunctionKindFunction
}

func (c *Component) isStub() bool {
	return c.Name == "" && c.Function == nil && len(c.ParameterMappings) == 0 &&
		len(c.InputComponents) == 0 && len(c.OutputComponents) == 0
}
