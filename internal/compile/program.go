package compile

import (
	"slices"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/model"
)

// Parameter mapping keys with a fixed meaning.
const (
	// InputVariable lists the inputs of a component.
	InputVariable = "inputString"
	// OutputVariablePrefix marks the terminal component of a transformation.
	OutputVariablePrefix = "__TRANSFORMATION_OUTPUT_VARIABLE__"
)

type sourceKind int

const (
	fromParam sourceKind = iota
	fromStep
)

// source is a reference to a program parameter or an earlier step.
type source struct {
	Kind  sourceKind
	Index int
}

// step evaluates one component.
type step struct {
	Name     string
	ID       model.ID
	Function string
	// Inputs holds one source list per input. For a transformation step
	// there is one entry per parameter of the nested program.
	Inputs [][]source
	Args   map[string]string

	apply Apply
	Sub   *Program
}

// Program is a compiled transformation. Steps are in evaluation order;
// every step source refers to an earlier step.
type Program struct {
	Name   string
	Params []string
	Steps  []*step
	// Result is the index of the terminal step, or -1 when the program
	// passes its parameters through.
	Result int
}

// Evaluate runs the program. env holds one value list per parameter.
func (p *Program) Evaluate(env [][]string) ([]string, error) {
	if p.Result < 0 {
		return slices.Concat(env...), nil
	}

	slots := make([][]string, len(p.Steps))

	for i, s := range p.Steps {
		in := make([][]string, len(s.Inputs))
		for j, srcs := range s.Inputs {
			in[j] = gather(srcs, env, slots)
		}

		var (
			out []string
			err error
		)

		if s.Sub != nil {
			out, err = s.Sub.Evaluate(in)
		} else {
			out, err = s.apply(in)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "component %s", s.Name)
		}

		slots[i] = out
	}

	return slots[p.Result], nil
}

func gather(srcs []source, env, slots [][]string) []string {
	if len(srcs) == 1 {
		return pick(srcs[0], env, slots)
	}

	var out []string
	for _, s := range srcs {
		out = append(out, pick(s, env, slots)...)
	}

	return out
}

func pick(s source, env, slots [][]string) []string {
	if s.Kind == fromParam {
		if s.Index < len(env) {
			return env[s.Index]
		}

		return nil
	}

	return slots[s.Index]
}
