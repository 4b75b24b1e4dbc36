package compile

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/match"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/schema"
)

// DefaultMaxFanOut caps the records built from one input record.
const DefaultMaxFanOut = 100

// Options configure compilation.
type Options struct {
	// Registry resolves primitive functions; nil means DefaultRegistry.
	Registry *Registry
	// MaxFanOut caps the output records per input record; zero means
	// DefaultMaxFanOut and a negative value disables the cap.
	MaxFanOut int
}

// Pipeline is the compiled form of a task.
type Pipeline struct {
	Task            string
	InputDataModel  model.ID
	OutputDataModel model.ID
	// Shape is the output record shape induced from the output schema.
	Shape *schema.Document
	// Warnings are diagnostics raised while compiling.
	Warnings diagnostic.Diagnostics

	mappings  []*compiledMapping
	skip      filter
	maxFanOut int
}

type compiledMapping struct {
	Name       string
	Inputs     []*accessor
	Program    *Program
	Output     []string
	OutputKey  string
	Readable   string
	Multivalue bool
}

// Compile compiles every mapping of the task against the schemas of its
// data models. It fails on the first mapping that cannot be compiled.
func Compile(task *model.Task, opts Options) (*Pipeline, error) {
	if task == nil || task.Job == nil {
		return nil, domain.NewInvalidDocument("task has no job", nil)
	}

	in, err := taskSchema(task.InputDataModel, "input")
	if err != nil {
		return nil, err
	}

	out, err := taskSchema(task.OutputDataModel, "output")
	if err != nil {
		return nil, err
	}

	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	switch {
	case opts.MaxFanOut == 0:
		opts.MaxFanOut = DefaultMaxFanOut
	case opts.MaxFanOut < 0:
		opts.MaxFanOut = 0
	}

	p := &Pipeline{
		Task:            task.Name,
		InputDataModel:  task.InputDataModel.ID,
		OutputDataModel: task.OutputDataModel.ID,
		Shape:           schema.InduceWith(out.Name, schema.TrieFromSchema(out), schema.MultivalueFlagPolicy),
		maxFanOut:       opts.MaxFanOut,
	}

	if p.skip, err = parseFilter(task.Job.SkipFilter); err != nil {
		return nil, err
	}

	c := newCompiler(opts.Registry)

	for _, m := range task.Job.Mappings {
		cm, err := c.mapping(m, in, out)
		if err != nil {
			return nil, err
		}

		p.mappings = append(p.mappings, cm)
	}

	p.Warnings = c.warnings

	return p, nil
}

func taskSchema(dm *model.DataModel, role string) (*model.Schema, error) {
	if dm == nil {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("task has no %s data model", role), nil)
	}

	if dm.Schema == nil || len(dm.Schema.AttributePaths) == 0 {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("%s data model %d has no schema", role, dm.ID), nil)
	}

	return dm.Schema, nil
}

func (c *compiler) mapping(m *model.Mapping, in, out *model.Schema) (*compiledMapping, error) {
	c.current = m.Name

	cm := &compiledMapping{Name: m.Name}

	params := make([]string, 0, len(m.InputAttributePaths))
	env := make(map[string]int)

	for i, inst := range m.InputAttributePaths {
		acc, err := inputAccessor(m, inst, in)
		if err != nil {
			return nil, err
		}

		cm.Inputs = append(cm.Inputs, acc)
		params = append(params, acc.Name)

		for _, alias := range []string{schema.NewPathHelper(acc.Path...).String(), acc.Readable, acc.Name} {
			env[alias] = i
		}
	}

	if m.OutputAttributePath == nil || m.OutputAttributePath.AttributePath == nil {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("mapping %q has no output attribute path", m.Name), nil)
	}

	path := m.OutputAttributePath.AttributePath

	target, ok := out.FindPath(path.Key())
	if !ok {
		return nil, mismatch(m, out, path)
	}

	cm.Output = path.URIs()
	cm.OutputKey = path.Key()
	cm.Readable = path.Readable()
	cm.Multivalue = target.Multivalue

	var comps []*model.Component
	if m.Transformation != nil {
		comps = []*model.Component{m.Transformation}
	}

	prog, err := c.program(m.Name, params, env, comps)
	if err != nil {
		return nil, err
	}

	cm.Program = prog

	return cm, nil
}

func inputAccessor(m *model.Mapping, inst *model.MappingAttributePathInstance, in *model.Schema) (*accessor, error) {
	if inst == nil || inst.AttributePath == nil || len(inst.AttributePath.Attributes) == 0 {
		return nil, domain.NewInvalidDocument(fmt.Sprintf("mapping %q has an input without attribute path", m.Name), nil)
	}

	path := inst.AttributePath

	declared, ok := in.FindPath(path.Key())
	if !ok {
		return nil, mismatch(m, in, path)
	}

	f, err := parseFilter(inst.Filter)
	if err != nil {
		return nil, err
	}

	acc := &accessor{
		Name:     inst.Name,
		Path:     path.URIs(),
		Readable: path.Readable(),
		Filter:   f,
		Required: declared.Required,
	}

	if acc.Name == "" {
		acc.Name = acc.Readable
	}

	if inst.Ordinal != nil {
		if *inst.Ordinal < 1 {
			return nil, domain.NewInvalidDocument(
				fmt.Sprintf("mapping %q uses ordinal %d; ordinals start at 1", m.Name, *inst.Ordinal), nil)
		}

		acc.Ordinal = *inst.Ordinal
	}

	return acc, nil
}

func mismatch(m *model.Mapping, s *model.Schema, path *model.AttributePath) error {
	known := make([]string, 0, len(s.AttributePaths))
	for _, inst := range s.AttributePaths {
		known = append(known, inst.AttributePath.Readable())
	}

	return domain.NewSchemaMismatch(m.Name, s.Name, path.Readable(), match.Suggest(path.Readable(), known, 3))
}

// Evaluate applies the pipeline to one record. It returns the output
// records, which may be none, and the diagnostics of this record. Only
// cancellation is returned as an error.
func (p *Pipeline) Evaluate(ctx context.Context, rec model.Record) ([]model.Record, diagnostic.Diagnostics, error) {
	var diags diagnostic.Diagnostics

	if err := ctx.Err(); err != nil {
		return nil, diags, err
	}

	if p.skip.matchesRecord(rec.Data) {
		diags.AddInfo(diagnostic.CodeEmptyResult, "record matches the skip filter", "", "")
		return nil, diags, nil
	}

	b := newOutputBuilder()

mappings:
	for _, m := range p.mappings {
		env := make([][]string, len(m.Inputs))

		for i, acc := range m.Inputs {
			env[i] = acc.read(rec.Data)

			if len(env[i]) == 0 && acc.Required {
				diags.AddError(diagnostic.CodeRecordFieldMissing,
					domain.NewRecordFieldMissing(rec.ID, acc.Readable).Error(), m.Name, acc.Readable)

				continue mappings
			}
		}

		values, err := m.Program.Evaluate(env)
		if err != nil {
			diags.AddError(diagnostic.CodeFunctionFailed, err.Error(), m.Name, m.Readable)
			continue
		}

		if len(values) > 0 {
			b.add(m.Output, m.OutputKey, m.Multivalue, values)
		}
	}

	if b.empty() {
		diags.AddInfo(diagnostic.CodeEmptyResult, "no mapping produced a value", "", "")
		return nil, diags, nil
	}

	records, truncated := b.build(rec.ID, p.maxFanOut)
	if truncated {
		diags.AddWarning(diagnostic.CodeFanOutLimited,
			fmt.Sprintf("record %s fans out to more than %d records", rec.ID, p.maxFanOut), "", "")
	}

	return records, diags, nil
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders the compiled pipeline for debugging.
func (p *Pipeline) Dump() string {
	return dumpConfig.Sdump(p.mappings)
}
