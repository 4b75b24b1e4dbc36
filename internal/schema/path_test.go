package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathHelper_RoundTrip(t *testing.T) {
	paths := []PathHelper{
		NewPathHelper("http://purl.org/dc/elements/1.1/title"),
		NewPathHelper("http://purl.org/dc/terms/creator", "http://xmlns.com/foaf/0.1/name"),
		NewPathHelper("a", "b", "c", "d"),
	}

	for _, p := range paths {
		t.Run(p.Readable(), func(t *testing.T) {
			parsed, err := ParsePathHelper(p.String())
			require.NoError(t, err)
			assert.Equal(t, p.Attributes, parsed.Attributes)
			assert.Equal(t, p.String(), parsed.String())
		})
	}
}

func TestParsePathHelper_Errors(t *testing.T) {
	_, err := ParsePathHelper("")
	require.Error(t, err)

	_, err = ParsePathHelper("a" + Delimiter + Delimiter + "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty segment")
}

func TestPathHelper_HasPrefix(t *testing.T) {
	p := NewPathHelper("a", "b", "c")
	assert.True(t, p.HasPrefix(NewPathHelper("a")))
	assert.True(t, p.HasPrefix(NewPathHelper("a", "b", "c")))
	assert.False(t, p.HasPrefix(NewPathHelper("b")))
	assert.False(t, p.HasPrefix(NewPathHelper("a", "b", "c", "d")))
	assert.Equal(t, "c", p.Last())
	assert.Equal(t, 3, p.Depth())
}

func TestTrie_InsertCollapsesDuplicates(t *testing.T) {
	tr := NewTrie()
	assert.True(t, tr.Insert(NewPathHelper("a", "b")))
	assert.False(t, tr.Insert(PathHelper{Attributes: []string{"a", "b"}, Multivalue: boolPtr(true)}))
	assert.False(t, tr.Insert(NewPathHelper()))
	assert.Equal(t, 1, tr.Len())

	h, ok := tr.Lookup(NewPathHelper("a", "b"))
	require.True(t, ok)
	assert.True(t, h.IsMultivalue(), "flags merge on duplicate insert")

	assert.False(t, tr.Contains(NewPathHelper("a")), "implied prefixes are not declared")
	assert.False(t, tr.Contains(NewPathHelper("a", "x")))
}

func TestTrie_LevelsAndPaths(t *testing.T) {
	tr := BuildTrie([]PathHelper{
		NewPathHelper("b", "y"),
		NewPathHelper("a"),
		NewPathHelper("b", "x", "deep"),
	})

	levels := tr.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, 3, tr.Depth())

	readable := func(hs []PathHelper) []string {
		var out []string
		for _, h := range hs {
			out = append(out, h.Readable())
		}

		return out
	}

	assert.Equal(t, []string{"a", "b"}, readable(levels[0]))
	assert.Equal(t, []string{"b.x", "b.y"}, readable(levels[1]))
	assert.Equal(t, []string{"b.x.deep"}, readable(levels[2]))
	assert.Equal(t, []string{"a", "b.y", "b.x.deep"}, readable(tr.Paths()))
}
