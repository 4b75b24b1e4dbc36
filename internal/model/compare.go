package model

import (
	"maps"
	"slices"
)

// EqualComponents compares two component graphs structurally. Neighbouring
// components are matched by identifier; each side tracks the components it
// has already checked, so linked graphs with cycles terminate.
func EqualComponents(expected, actual *Component) bool {
	c := &comparer{
		checkedExpected: make(map[*Component]bool),
		checkedActual:   make(map[*Component]bool),
	}

	return c.component(expected, actual)
}

type comparer struct {
	checkedExpected map[*Component]bool
	checkedActual   map[*Component]bool
}

func (c *comparer) component(e, a *Component) bool {
	if e == nil || a == nil {
		return e == a
	}

	if c.checkedExpected[e] && c.checkedActual[a] {
		return true
	}

	c.checkedExpected[e] = true
	c.checkedActual[a] = true

	if e.ID != a.ID || e.Name != a.Name || e.Description != a.Description {
		return false
	}

	if !maps.Equal(e.ParameterMappings, a.ParameterMappings) {
		return false
	}

	if !c.function(e.Function, a.Function) {
		return false
	}

	return c.neighbours(e.InputComponents, a.InputComponents) &&
		c.neighbours(e.OutputComponents, a.OutputComponents)
}

func (c *comparer) neighbours(e, a []*Component) bool {
	if len(e) != len(a) {
		return false
	}

	byID := make(map[ID]*Component, len(a))
	for _, n := range a {
		byID[n.ID] = n
	}

	for _, n := range e {
		m, ok := byID[n.ID]
		if !ok || !c.component(n, m) {
			return false
		}
	}

	return true
}

func (c *comparer) function(e, a *Function) bool {
	if e == nil || a == nil {
		return e == a
	}

	if e.ID != a.ID || e.Name != a.Name || e.Kind != a.Kind || !slices.Equal(e.Parameters, a.Parameters) {
		return false
	}

	if len(e.Components) != len(a.Components) {
		return false
	}

	return c.neighbours(e.Components, a.Components)
}
