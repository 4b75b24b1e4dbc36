package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-mapper/internal/schema"
)

const taskYAML = `
name: titles
job:
  mappings:
    - name: title
      input_attribute_paths:
        - name: name
          attribute_path:
            attributes: [{uri: name}]
      output_attribute_path:
        attribute_path:
          attributes: [{uri: title}]
      transformation:
        name: upper
        function: {name: uppercase}
input_data_model:
  id: 1
  name: in
  schema:
    name: in
    attribute_paths:
      - attribute_path:
          attributes: [{uri: name}]
output_data_model:
  id: 2
  name: out
  schema:
    name: out
    attribute_paths:
      - attribute_path:
          attributes: [{uri: title}]
`

const projectJSON = `{
  "id": -1,
  "name": "books",
  "input_data_model": {"id": -2, "name": "in", "schema": {"id": -3, "name": "in", "attribute_paths": [
    {"id": -4, "attribute_path": {"id": -5, "attributes": [{"id": -6, "uri": "name"}]}}
  ]}},
  "output_data_model": {"id": -7, "name": "out", "schema": {"id": -8, "name": "out", "attribute_paths": [
    {"id": -9, "attribute_path": {"id": -10, "attributes": [{"id": -11, "uri": "title"}]}}
  ]}},
  "mappings": [{
    "id": -20,
    "name": "name to title",
    "input_attribute_paths": [{"id": -21, "name": "name", "attribute_path": {"id": -5}}],
    "output_attribute_path": {"id": -22, "attribute_path": {"id": -10}},
    "transformation": {"id": -23, "name": "copy", "function": {"id": -24, "name": "identity"}}
  }]
}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "none")
}

func TestRun_TaskFile(t *testing.T) {
	task := writeFile(t, "task.yaml", taskYAML)

	out, err := runCLI(t, "--store", "memory", "run", task)
	require.NoError(t, err)

	var res runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, 0, res.Processed)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Shape)
	assert.Equal(t, []string{"title"}, res.Shape.Properties.Keys())

	out, err = runCLI(t, "--store", "memory", "run", "--plan", task)
	require.NoError(t, err)

	var plan planOutput
	require.NoError(t, json.Unmarshal([]byte(out), &plan), out)
	require.NotNil(t, plan.Shape)
	assert.Equal(t, "out", plan.Shape.Title)
	assert.Equal(t, []string{"title"}, plan.Shape.Properties.Keys())

	out, err = runCLI(t, "--store", "memory", "run", "--plan", "--dump", task)
	require.NoError(t, err)
	assert.Contains(t, out, `"title"`)
	assert.Contains(t, out, `"uppercase"`)
}

func TestRun_NeedsExactlyOneSource(t *testing.T) {
	_, err := runCLI(t, "--store", "memory", "run")
	assert.ErrorContains(t, err, "either a task file or --project")

	_, err = runCLI(t, "--store", "memory", "run", "--project", "3", "task.yaml")
	assert.ErrorContains(t, err, "either a task file or --project")
}

func TestSubmitThenPlanStoredProject(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mapper.db")
	doc := writeFile(t, "project.json", projectJSON)

	out, err := runCLI(t, "--db", db, "submit", "--kind", "project", doc)
	require.NoError(t, err)

	var sub submitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sub), out)
	assert.Equal(t, "Project", sub.Kind)
	require.Positive(t, int64(sub.ID))

	id, err := json.Marshal(sub.ID)
	require.NoError(t, err)

	out, err = runCLI(t, "--db", db, "run", "--plan", "--dump", "--project", string(id))
	require.NoError(t, err)
	assert.Contains(t, out, `"name to title"`)
}

func TestSubmit_UnknownKind(t *testing.T) {
	doc := writeFile(t, "doc.json", `{}`)

	_, err := runCLI(t, "--store", "memory", "submit", "--kind", "widget", doc)
	assert.ErrorContains(t, err, "widget")
}

func TestInduce(t *testing.T) {
	records := writeFile(t, "records.json", `[{"a": {"b": "x"}}, {"c": "y"}]`)

	out, err := runCLI(t, "--store", "memory", "induce", "--title", "sample", records)
	require.NoError(t, err)

	var doc schema.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.Equal(t, "sample", doc.Title)

	a, ok := doc.Properties.Get("a")
	require.True(t, ok)
	assert.Equal(t, schema.TypeObject, a.Type)

	_, ok = a.Properties.Get("b")
	assert.True(t, ok)

	_, ok = doc.Properties.Get("c")
	assert.True(t, ok)
}

func TestInduce_Submit(t *testing.T) {
	records := writeFile(t, "records.json", `{"a": {"b": "x"}}`)

	out, err := runCLI(t, "--store", "memory", "induce", "--submit", records)
	require.NoError(t, err)

	var sub submitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sub), out)
	assert.Equal(t, "Schema", sub.Kind)
	assert.NotEmpty(t, sub.Resolved)
}

func TestInduce_RejectsScalarFile(t *testing.T) {
	records := writeFile(t, "records.json", `42`)

	_, err := runCLI(t, "--store", "memory", "induce", records)
	assert.ErrorContains(t, err, "neither an object nor an array")
}
