package compile

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// compiler turns component graphs into programs. Programs of shared
// transformations are compiled once.
type compiler struct {
	registry *Registry
	programs map[*model.Function]*Program
	active   []*model.Function
	current  string
	warnings diagnostic.Diagnostics
}

func newCompiler(r *Registry) *compiler {
	return &compiler{registry: r, programs: make(map[*model.Function]*Program)}
}

// scope is the naming context of one component graph.
type scope struct {
	name    string
	nparams int
	params  map[string]int
	comps   []*model.Component
	index   map[*model.Component]int
	names   map[string]int
}

func newScope(name string, nparams int, params map[string]int, comps []*model.Component) *scope {
	s := &scope{
		name:    name,
		nparams: nparams,
		params:  params,
		comps:   comps,
		index:   make(map[*model.Component]int, len(comps)),
		names:   make(map[string]int, len(comps)),
	}

	for i, c := range comps {
		s.index[c] = i
		s.names[strconv.FormatInt(int64(c.ID), 10)] = i

		if c.Name == "" {
			continue
		}

		if _, dup := s.names[c.Name]; dup {
			s.names[c.Name] = -1
		} else {
			s.names[c.Name] = i
		}
	}

	return s
}

// resolve turns one input reference into a source. Parameters shadow
// component names.
func (s *scope) resolve(owner *model.Component, ref string) (source, error) {
	ref = strings.TrimSpace(ref)

	if i, ok := s.params[ref]; ok {
		return source{Kind: fromParam, Index: i}, nil
	}

	i, ok := s.names[ref]

	switch {
	case !ok:
		return source{}, domain.NewInvalidDocument(
			fmt.Sprintf("component %q in %q refers to unknown input %q", componentName(owner), s.name, ref), nil)
	case i < 0:
		return source{}, domain.NewInvalidDocument(
			fmt.Sprintf("component %q in %q refers to ambiguous component name %q", componentName(owner), s.name, ref), nil)
	}

	return source{Kind: fromStep, Index: i}, nil
}

func (s *scope) resolveList(owner *model.Component, refs string) ([]source, error) {
	var out []source

	for ref := range strings.SplitSeq(refs, ",") {
		if strings.TrimSpace(ref) == "" {
			continue
		}

		src, err := s.resolve(owner, ref)
		if err != nil {
			return nil, err
		}

		out = append(out, src)
	}

	return out, nil
}

// defaults are the inputs of a component that names none explicitly.
func (s *scope) defaults(c *model.Component) ([][]source, error) {
	if len(c.InputComponents) > 0 {
		out := make([][]source, 0, len(c.InputComponents))

		for _, in := range c.InputComponents {
			i, ok := s.index[in]
			if !ok {
				return nil, domain.NewUnresolvedReference(model.KindComponent.String(), int64(in.ID),
					fmt.Sprintf("input of %q is not part of %q", componentName(c), s.name))
			}

			out = append(out, []source{{Kind: fromStep, Index: i}})
		}

		return out, nil
	}

	out := make([][]source, s.nparams)
	for i := range out {
		out[i] = []source{{Kind: fromParam, Index: i}}
	}

	return out, nil
}

// transformation compiles a transformation function into a program.
func (c *compiler) transformation(fn *model.Function) (*Program, error) {
	if p, ok := c.programs[fn]; ok {
		return p, nil
	}

	if i := slices.Index(c.active, fn); i >= 0 {
		var chain []string
		for _, f := range c.active[i:] {
			chain = append(chain, functionName(f))
		}

		return nil, domain.NewCyclicEvaluation(functionName(fn), append(chain, functionName(fn)))
	}

	c.active = append(c.active, fn)
	defer func() { c.active = c.active[:len(c.active)-1] }()

	params := fn.Parameters
	if len(params) == 0 {
		params = []string{InputVariable}
	}

	p, err := c.program(functionName(fn), params, indexParams(params), fn.Components)
	if err != nil {
		return nil, err
	}

	c.programs[fn] = p

	return p, nil
}

func indexParams(params []string) map[string]int {
	out := make(map[string]int, len(params))
	for i, p := range params {
		out[p] = i
	}

	return out
}

// program compiles a component graph. env maps every name a component may
// use for a parameter to its index in params.
func (c *compiler) program(name string, params []string, env map[string]int, comps []*model.Component) (*Program, error) {
	if len(comps) == 0 {
		return &Program{Name: name, Params: params, Result: -1}, nil
	}

	sc := newScope(name, len(params), env, comps)
	steps := make([]*step, len(comps))
	deps := make([][]int, len(comps))

	for i, comp := range comps {
		s, err := c.step(sc, comp)
		if err != nil {
			return nil, err
		}

		steps[i] = s

		for _, srcs := range s.Inputs {
			for _, src := range srcs {
				if src.Kind == fromStep {
					deps[i] = append(deps[i], src.Index)
				}
			}
		}

		for _, in := range comp.InputComponents {
			if j, ok := sc.index[in]; ok {
				deps[i] = append(deps[i], j)
			}
		}

		for _, out := range comp.OutputComponents {
			if j, ok := sc.index[out]; ok {
				deps[j] = append(deps[j], i)
			}
		}
	}

	for i := range deps {
		slices.Sort(deps[i])
		deps[i] = slices.Compact(deps[i])
	}

	depsFn := func(i int) []int { return deps[i] }

	order, err := topoSort(len(comps), depsFn)
	if errors.Is(err, errCycle) {
		cycle := findCycle(len(comps), depsFn)
		slices.Reverse(cycle)

		chain := make([]string, 0, len(cycle))
		for _, i := range cycle {
			chain = append(chain, componentName(comps[i]))
		}

		return nil, domain.NewCyclicEvaluation(name, chain)
	}

	if err != nil {
		return nil, err
	}

	terminal, err := c.terminal(sc, deps, order)
	if err != nil {
		return nil, err
	}

	return link(name, params, steps, deps, order, terminal), nil
}

// terminal picks the step whose output is the result of the program.
func (c *compiler) terminal(sc *scope, deps [][]int, order []int) (int, error) {
	var marked []int

	for i, comp := range sc.comps {
		for key := range comp.ParameterMappings {
			if strings.HasPrefix(key, OutputVariablePrefix) {
				marked = append(marked, i)
				break
			}
		}
	}

	switch len(marked) {
	case 0:
	case 1:
		return marked[0], nil
	default:
		return 0, domain.NewInvalidDocument(
			fmt.Sprintf("transformation %q marks %d components as its output", sc.name, len(marked)), nil)
	}

	consumed := make([]bool, len(sc.comps))
	for _, ds := range deps {
		for _, d := range ds {
			consumed[d] = true
		}
	}

	var sinks []int

	for _, i := range order {
		if !consumed[i] {
			sinks = append(sinks, i)
		}
	}

	last := sinks[len(sinks)-1]

	if len(sinks) > 1 {
		c.warnings.AddWarning(diagnostic.CodeAmbiguousTerminal,
			fmt.Sprintf("transformation %q has %d unconsumed components; using %q",
				sc.name, len(sinks), componentName(sc.comps[last])),
			c.current, "")
	}

	return last, nil
}

// link keeps the steps the terminal depends on, in evaluation order, and
// rewrites step sources to positions in that order.
func link(name string, params []string, steps []*step, deps [][]int, order []int, terminal int) *Program {
	needed := make([]bool, len(steps))

	var mark func(i int)
	mark = func(i int) {
		if needed[i] {
			return
		}

		needed[i] = true

		for _, d := range deps[i] {
			mark(d)
		}
	}

	mark(terminal)

	pos := make([]int, len(steps))
	p := &Program{Name: name, Params: params}

	for _, i := range order {
		if !needed[i] {
			continue
		}

		pos[i] = len(p.Steps)
		p.Steps = append(p.Steps, steps[i])
	}

	for _, s := range p.Steps {
		for _, srcs := range s.Inputs {
			for k := range srcs {
				if srcs[k].Kind == fromStep {
					srcs[k].Index = pos[srcs[k].Index]
				}
			}
		}
	}

	p.Result = pos[terminal]

	return p
}

// step compiles a single component.
func (c *compiler) step(sc *scope, comp *model.Component) (*step, error) {
	fn := comp.Function
	if fn == nil {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("component %q has no function", componentName(comp)), nil)
	}

	if fn.Name == "" && !fn.IsTransformation() {
		return nil, domain.NewUnresolvedReference(model.KindFunction.String(), int64(fn.ID), "function is not defined")
	}

	s := &step{Name: componentName(comp), ID: comp.ID, Function: fn.Name}

	var err error

	if fn.IsTransformation() {
		err = c.bindTransformation(sc, comp, s)
	} else {
		err = c.bindPrimitive(sc, comp, s)
	}

	if err != nil {
		return nil, err
	}

	return s, nil
}

func (c *compiler) bindPrimitive(sc *scope, comp *model.Component, s *step) error {
	fn := comp.Function

	prim, ok := c.registry.Lookup(fn.Name)
	if !ok {
		return domain.NewUnresolvedReference(model.KindFunction.String(), int64(fn.ID),
			fmt.Sprintf("no function named %q", fn.Name))
	}

	allowed := fn.Parameters
	if len(allowed) == 0 {
		allowed = prim.Params
	}

	s.Args = make(map[string]string)

	for key, value := range comp.ParameterMappings {
		switch {
		case key == InputVariable, strings.HasPrefix(key, OutputVariablePrefix):
			continue
		case !slices.Contains(allowed, key):
			return domain.NewInvalidDocument(fmt.Sprintf(
				"component %q maps parameter %q that function %q does not declare", s.Name, key, fn.Name), nil)
		}

		s.Args[key] = value
	}

	if refs, ok := comp.ParameterMappings[InputVariable]; ok {
		srcs, err := sc.resolveList(comp, refs)
		if err != nil {
			return err
		}

		for _, src := range srcs {
			s.Inputs = append(s.Inputs, []source{src})
		}
	} else {
		defaults, err := sc.defaults(comp)
		if err != nil {
			return err
		}

		s.Inputs = defaults
	}

	apply, err := prim.Bind(s.Args)
	if err != nil {
		return domain.NewInvalidDocument(fmt.Sprintf("component %q has invalid arguments", s.Name), err)
	}

	s.apply = apply

	return nil
}

func (c *compiler) bindTransformation(sc *scope, comp *model.Component, s *step) error {
	sub, err := c.transformation(comp.Function)
	if err != nil {
		return err
	}

	s.Sub = sub

	for key := range comp.ParameterMappings {
		if key != InputVariable && !strings.HasPrefix(key, OutputVariablePrefix) && !slices.Contains(sub.Params, key) {
			return domain.NewInvalidDocument(fmt.Sprintf(
				"component %q maps parameter %q that transformation %q does not declare", s.Name, key, sub.Name), nil)
		}
	}

	var defaults [][]source

	if refs, ok := comp.ParameterMappings[InputVariable]; ok && !slices.Contains(sub.Params, InputVariable) {
		srcs, err := sc.resolveList(comp, refs)
		if err != nil {
			return err
		}

		for _, src := range srcs {
			defaults = append(defaults, []source{src})
		}
	} else if defaults, err = sc.defaults(comp); err != nil {
		return err
	}

	var unmapped []int

	s.Inputs = make([][]source, len(sub.Params))

	for i, param := range sub.Params {
		refs, ok := comp.ParameterMappings[param]
		if !ok {
			unmapped = append(unmapped, i)
			continue
		}

		if s.Inputs[i], err = sc.resolveList(comp, refs); err != nil {
			return err
		}
	}

	if len(unmapped) == 1 && len(unmapped) == len(sub.Params) {
		s.Inputs[0] = slices.Concat(defaults...)
		return nil
	}

	for n, i := range unmapped {
		if n >= len(defaults) {
			c.warnings.AddWarning(diagnostic.CodeUnusedParameter,
				fmt.Sprintf("parameter %q of transformation %q receives no input", sub.Params[i], sub.Name),
				c.current, "")

			continue
		}

		s.Inputs[i] = defaults[n]
	}

	return nil
}

func componentName(c *model.Component) string {
	if c.Name != "" {
		return c.Name
	}

	return fmt.Sprintf("component %d", c.ID)
}

func functionName(f *model.Function) string {
	if f.Name != "" {
		return f.Name
	}

	return fmt.Sprintf("function %d", f.ID)
}
