package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocument_YAML(t *testing.T) {
	doc := `
id: -1
name: dc to mabxml
input_data_model:
  id: 4
mappings:
  - id: -2
    name: title
    transformation:
      id: -3
      name: t
      function:
        id: 2
        name: trim
        parameters: [inputString]
`

	data, err := LoadDocument([]byte(doc))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	p, err := Decode[Project](data)
	require.NoError(t, err)
	assert.Equal(t, ID(-1), p.ID)
	assert.Equal(t, "dc to mabxml", p.Name)
	require.Len(t, p.Mappings, 1)
	assert.Equal(t, []string{"inputString"}, p.Mappings[0].Transformation.Function.Parameters)
	assert.Equal(t, FunctionKindFunction, p.Mappings[0].Transformation.Function.Kind)
}

func TestLoadDocument_JSONPassesThrough(t *testing.T) {
	data, err := LoadDocument([]byte(`  {"id": 3}  `))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 3}`, string(data))
}

func TestLoadDocument_Empty(t *testing.T) {
	_, err := LoadDocument([]byte("   "))
	assert.Error(t, err)
}

func TestDecodeEntity(t *testing.T) {
	e, err := DecodeEntity(KindSchema, []byte(`{"id": -1, "name": "s"}`))
	require.NoError(t, err)
	assert.Equal(t, KindSchema, e.EntityKind())
	assert.Equal(t, ID(-1), e.EntityID())

	_, err = DecodeEntity(KindAttributePathInstance, []byte(`{"id": 1}`))
	assert.Error(t, err)

	_, err = DecodeEntity(KindFunction, []byte(`{"id": 1, "type": "Macro"}`))
	assert.Error(t, err)
}

func TestComponent_MarshalJSONUsesReferences(t *testing.T) {
	a := &Component{ID: 1, Name: "a"}
	a.OutputComponents = []*Component{a}
	a.InputComponents = []*Component{a}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"a","input_components":[{"id":1}],"output_components":[{"id":1}]}`, string(data))
}

func TestComponent_MarshalJSONReferencesTransformations(t *testing.T) {
	inner := &Function{ID: 7, Name: "inner", Kind: FunctionKindTransformation}
	c := &Component{ID: 1, Function: inner}
	inner.Components = []*Component{c}

	data, err := json.Marshal(inner)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"inner","type":"Transformation","components":[{"id":1,"function":{"id":7}}]}`, string(data))

	c.Function = &Function{ID: 8, Name: "trim"}
	data, err = json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"function":{"id":8,"name":"trim","type":"Function"}}`, string(data))
}

func TestAttributePath_Key(t *testing.T) {
	p := &AttributePath{Attributes: []*Attribute{{URI: "a"}, {URI: "b"}}}
	assert.Equal(t, "a\u001eb", p.Key())
	assert.Equal(t, "a.b", p.Readable())
}

func TestProject_Task(t *testing.T) {
	p := &Project{
		Name:            "p",
		InputDataModel:  &DataModel{ID: 1},
		OutputDataModel: &DataModel{ID: 2},
		Mappings:        []*Mapping{{ID: 3}},
		SelectedRecords: []string{"r1"},
	}

	task := p.Task()
	assert.Equal(t, "p", task.Name)
	assert.Same(t, p.InputDataModel, task.InputDataModel)
	assert.Same(t, p.OutputDataModel, task.OutputDataModel)
	assert.Equal(t, p.Mappings, task.Job.Mappings)
	assert.Equal(t, []string{"r1"}, task.SelectedRecords)
}
