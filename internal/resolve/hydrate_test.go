package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-mapper/internal/model"
)

type mapLoader map[model.Ref]string

func (m mapLoader) LoadDocument(_ context.Context, kind model.EntityKind, id model.ID) ([]byte, bool, error) {
	doc, ok := m[model.Ref{Kind: kind, ID: id}]
	return []byte(doc), ok, nil
}

func TestHydrate_LoadsNestedDefinitions(t *testing.T) {
	loader := mapLoader{
		{Kind: model.KindFunction, ID: 10}: `{"id": 10, "name": "outer", "type": "Transformation",
		  "components": [{"id": 11, "name": "c", "function": {"id": 12}}]}`,
		{Kind: model.KindFunction, ID: 12}: `{"id": 12, "name": "trim", "parameters": ["inputString"]}`,
	}

	job, err := model.Decode[model.Job]([]byte(`{
	  "id": 1,
	  "mappings": [{"id": 2, "transformation": {"id": 3, "function": {"id": 10}}}, {"id": 4, "transformation": {"id": 5, "function": {"id": 99}}}]
	}`))
	require.NoError(t, err)

	g, err := Hydrate(context.Background(), loader, job)
	require.NoError(t, err)

	outer := job.Mappings[0].Transformation.Function
	assert.Equal(t, "outer", outer.Name)
	require.Len(t, outer.Components, 1)
	assert.Equal(t, "trim", outer.Components[0].Function.Name)

	assert.Equal(t, []model.Ref{{Kind: model.KindFunction, ID: 99}}, g.Undefined())
}
