package compile

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

const booksProject = `{
  "id": 1,
  "name": "books",
  "input_data_model": {"id": 2, "name": "in", "schema": {"id": 3, "name": "in-schema", "attribute_paths": [
    {"id": 4, "attribute_path": {"id": 5, "attributes": [{"id": 6, "uri": "name"}]}},
    {"id": 7, "attribute_path": {"id": 8, "attributes": [{"id": 9, "uri": "isbn"}]}}
  ]}},
  "output_data_model": {"id": 10, "name": "out", "schema": {"id": 11, "name": "out-schema", "attribute_paths": [
    {"id": 12, "attribute_path": {"id": 13, "attributes": [{"id": 14, "uri": "title"}]}}
  ]}},
  "mappings": [{
    "id": 20,
    "name": "name to title",
    "input_attribute_paths": [{"id": 21, "name": "name", "attribute_path": {"id": 5}}],
    "output_attribute_path": {"id": 22, "attribute_path": {"id": 13}},
    "transformation": {"id": 23, "name": "copy", "function": {"id": 24, "name": "identity"}}
  }]
}`

func TestCompile_EndToEndIdentity(t *testing.T) {
	p, err := model.Decode[model.Project]([]byte(booksProject))
	require.NoError(t, err)

	_, err = model.Link(p)
	require.NoError(t, err)

	pipeline, err := Compile(p.Task(), Options{})
	require.NoError(t, err)
	assert.True(t, pipeline.Warnings.Empty())

	out, diags, err := pipeline.Evaluate(context.Background(), model.Record{
		ID:   "r1",
		Data: map[string]any{"name": "Foo", "isbn": "123"},
	})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())
	assert.Equal(t, []model.Record{{ID: "r1", Data: map[string]any{"title": "Foo"}}}, out)

	assert.Equal(t, model.ID(2), pipeline.InputDataModel)
	assert.Equal(t, []string{"title"}, pipeline.Shape.Properties.Keys())
	assert.Contains(t, pipeline.Dump(), "name to title")
}

// Builders for hand-made tasks.

func attrPath(uris ...string) *model.AttributePath {
	p := &model.AttributePath{}
	for _, u := range uris {
		p.Attributes = append(p.Attributes, &model.Attribute{URI: u})
	}

	return p
}

func declared(required, multivalue bool, uris ...string) *model.SchemaAttributePathInstance {
	return &model.SchemaAttributePathInstance{
		AttributePathInstance: model.AttributePathInstance{AttributePath: attrPath(uris...)},
		Required:              required,
		Multivalue:            multivalue,
	}
}

func input(name string, uris ...string) *model.MappingAttributePathInstance {
	return &model.MappingAttributePathInstance{
		AttributePathInstance: model.AttributePathInstance{Name: name, AttributePath: attrPath(uris...)},
	}
}

func fn(name string, params ...string) *model.Function {
	return &model.Function{Name: name, Parameters: params}
}

func comp(name string, f *model.Function, pm map[string]string, inputs ...*model.Component) *model.Component {
	return &model.Component{Name: name, Function: f, ParameterMappings: pm, InputComponents: inputs}
}

func transformation(name string, params []string, comps ...*model.Component) *model.Function {
	return &model.Function{Name: name, Kind: model.FunctionKindTransformation, Parameters: params, Components: comps}
}

func newTask(in, out []*model.SchemaAttributePathInstance, mappings ...*model.Mapping) *model.Task {
	return &model.Task{
		Name:            "t",
		Job:             &model.Job{Mappings: mappings},
		InputDataModel:  &model.DataModel{ID: 1, Schema: &model.Schema{Name: "in", AttributePaths: in}},
		OutputDataModel: &model.DataModel{ID: 2, Schema: &model.Schema{Name: "out", AttributePaths: out}},
	}
}

func mapping(name string, out []string, tr *model.Component, inputs ...*model.MappingAttributePathInstance) *model.Mapping {
	return &model.Mapping{
		Name:                name,
		InputAttributePaths: inputs,
		OutputAttributePath: input("", out...),
		Transformation:      tr,
	}
}

func evaluate(t *testing.T, task *model.Task, data map[string]any) ([]model.Record, diagnostic.Diagnostics) {
	t.Helper()

	p, err := Compile(task, Options{})
	require.NoError(t, err)

	out, diags, err := p.Evaluate(context.Background(), model.Record{ID: "r1", Data: data})
	require.NoError(t, err)

	return out, diags
}

func TestCompile_ComponentChain(t *testing.T) {
	trim := comp("trim", fn("trim"), map[string]string{InputVariable: "value"})
	upper := comp("upper", fn("case", "to"), map[string]string{"to": "upper"}, trim)
	prefix := comp("prefix", fn("compose", "prefix", "postfix"), map[string]string{
		InputVariable:                  "upper",
		"prefix":                       "PRE:",
		OutputVariablePrefix + "title": "title",
	})

	tr := transformation("normalize", []string{"value"}, prefix, upper, trim)

	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("call", tr, map[string]string{"value": "name"}), input("name", "name")),
	)

	out, diags := evaluate(t, task, map[string]any{"name": "  foo "})
	assert.False(t, diags.HasErrors())
	require.Len(t, out, 1)
	assert.Equal(t, "PRE:FOO", out[0].Data["title"])
}

func TestCompile_CyclicEvaluation(t *testing.T) {
	a := comp("a", fn("trim"), nil)
	b := comp("b", fn("trim"), nil, a)
	a.InputComponents = []*model.Component{b}

	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("call", transformation("loop", nil, a, b), nil), input("name", "name")),
	)

	_, err := Compile(task, Options{})
	require.Error(t, err)

	var cyclic *domain.CyclicEvaluationError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, "loop", cyclic.Transformation)
	assert.Equal(t, []string{"a", "b", "a"}, cyclic.Chain)
}

func TestCompile_SelfContainedTransformation(t *testing.T) {
	tr := transformation("again", nil)
	tr.Components = []*model.Component{comp("inner", tr, nil)}

	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("call", tr, nil), input("name", "name")),
	)

	_, err := Compile(task, Options{})

	var cyclic *domain.CyclicEvaluationError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"again", "again"}, cyclic.Chain)
}

func TestCompile_SchemaMismatchSuggestsPaths(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name"), declared(false, false, "isbn")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, nil, input("x", "nam")),
	)

	_, err := Compile(task, Options{})

	var mismatch *domain.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "nam", mismatch.Path)
	assert.Equal(t, "in", mismatch.Schema)
	assert.Equal(t, []string{"name"}, mismatch.Suggestions)
	assert.True(t, domain.IsClientError(err))
}

func TestCompile_RejectsUndeclaredParameter(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("c", fn("trim"), map[string]string{"width": "3"}), input("name", "name")),
	)

	_, err := Compile(task, Options{})

	var invalid *domain.InvalidDocumentError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Message, "width")
}

func TestCompile_UnknownFunction(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("c", fn("soundex"), nil), input("name", "name")),
	)

	_, err := Compile(task, Options{})

	var unresolved *domain.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "Function", unresolved.Kind)
}

func TestCompile_AmbiguousTerminalWarns(t *testing.T) {
	tr := transformation("two", nil,
		comp("lower", fn("lowercase"), nil),
		comp("upper", fn("uppercase"), nil),
	)

	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("call", tr, nil), input("name", "name")),
	)

	p, err := Compile(task, Options{})
	require.NoError(t, err)
	require.Len(t, p.Warnings.Warnings, 1)
	assert.Equal(t, diagnostic.CodeAmbiguousTerminal, p.Warnings.Warnings[0].Code)

	out, _, err := p.Evaluate(context.Background(), model.Record{ID: "r1", Data: map[string]any{"name": "Ab"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "AB", out[0].Data["title"])
}

func TestEvaluate_RequiredFieldMissing(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(true, false, "name"), declared(false, false, "isbn")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title"), declared(false, false, "id")},
		mapping("title", []string{"title"}, nil, input("name", "name")),
		mapping("id", []string{"id"}, nil, input("isbn", "isbn")),
	)

	out, diags := evaluate(t, task, map[string]any{"isbn": 123.0})
	require.True(t, diags.HasErrors())
	assert.Equal(t, diagnostic.CodeRecordFieldMissing, diags.Errors[0].Code)
	assert.Equal(t, "title", diags.Errors[0].Mapping)

	require.Len(t, out, 1)
	assert.Equal(t, map[string]any{"id": "123"}, out[0].Data)
}

func TestEvaluate_FanOutAndMultivalue(t *testing.T) {
	in := []*model.SchemaAttributePathInstance{declared(false, true, "subject")}

	scalar := newTask(in,
		[]*model.SchemaAttributePathInstance{declared(false, false, "subject")},
		mapping("m", []string{"subject"}, nil, input("s", "subject")),
	)

	data := map[string]any{"subject": []any{"a", "b", "c"}}

	out, _ := evaluate(t, scalar, data)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"r1", "r1#2", "r1#3"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "c", out[2].Data["subject"])

	multi := newTask(in,
		[]*model.SchemaAttributePathInstance{declared(false, true, "subject")},
		mapping("m", []string{"subject"}, nil, input("s", "subject")),
	)

	out, _ = evaluate(t, multi, data)
	require.Len(t, out, 1)
	assert.Equal(t, []any{"a", "b", "c"}, out[0].Data["subject"])

	p, err := Compile(scalar, Options{MaxFanOut: 2})
	require.NoError(t, err)

	out, diags, err := p.Evaluate(context.Background(), model.Record{ID: "r1", Data: data})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, diagnostic.CodeFanOutLimited, diags.Warnings[0].Code)
}

func TestEvaluate_NestedOutputBranches(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name"), declared(false, false, "isbn")},
		[]*model.SchemaAttributePathInstance{
			declared(false, false, "book"),
			declared(false, false, "book", "title"),
			declared(false, false, "book", "isbn"),
		},
		mapping("title", []string{"book", "title"}, nil, input("name", "name")),
		mapping("isbn", []string{"book", "isbn"}, nil, input("isbn", "isbn")),
	)

	out, _ := evaluate(t, task, map[string]any{"name": "Foo", "isbn": "123"})
	require.Len(t, out, 1)
	assert.Equal(t, map[string]any{"book": map[string]any{"title": "Foo", "isbn": "123"}}, out[0].Data)
}

func TestEvaluate_SkipFilter(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name"), declared(false, false, "status")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, nil, input("name", "name")),
	)
	task.Job.SkipFilter = &model.Filter{Name: "deleted", Expression: `{"status": "^deleted$"}`}

	out, diags := evaluate(t, task, map[string]any{"name": "Foo", "status": "deleted"})
	assert.Empty(t, out)
	assert.False(t, diags.HasErrors())

	out, _ = evaluate(t, task, map[string]any{"name": "Foo", "status": "ok"})
	assert.Len(t, out, 1)
}

func TestEvaluate_FunctionFailureIsPerRecord(t *testing.T) {
	reg := DefaultRegistry()
	reg.Register(whole("explode", nil, func(map[string]string) (Apply, error) {
		return func([][]string) ([]string, error) { return nil, errors.New("boom") }, nil
	}))

	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, comp("c", fn("explode"), nil), input("name", "name")),
	)

	p, err := Compile(task, Options{Registry: reg})
	require.NoError(t, err)

	out, diags, err := p.Evaluate(context.Background(), model.Record{ID: "r1", Data: map[string]any{"name": "x"}})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.True(t, diags.HasErrors())
	assert.Equal(t, diagnostic.CodeFunctionFailed, diags.Errors[0].Code)
	assert.Contains(t, diags.Errors[0].Message, "boom")
}

func TestEvaluate_Cancelled(t *testing.T) {
	task := newTask(
		[]*model.SchemaAttributePathInstance{declared(false, false, "name")},
		[]*model.SchemaAttributePathInstance{declared(false, false, "title")},
		mapping("m", []string{"title"}, nil, input("name", "name")),
	)

	p, err := Compile(task, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = p.Evaluate(ctx, model.Record{ID: "r1"})
	assert.ErrorIs(t, err, context.Canceled)
}
