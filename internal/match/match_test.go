package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"a", "b", 1},
		{"ab", "abc", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"titel", "title", 2},
		{"ÄÖ", "AO", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.expected, Levenshtein(tt.b, tt.a), "symmetry")
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, Similarity("abc", "abc"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.6, Similarity("titel", "title"), 1e-9)
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "title", LocalName("http://purl.org/dc/elements/1.1/title"))
	assert.Equal(t, "label", LocalName("http://www.w3.org/2000/01/rdf-schema#label"))
	assert.Equal(t, "creator", LocalName("http://purl.org/dc/terms/creator/"))
	assert.Equal(t, "plain", LocalName("plain"))
}

func TestNormalizeIdent(t *testing.T) {
	assert.Equal(t, "dctitle", NormalizeIdent("dc:Title"))
	assert.Equal(t, "dctitle", NormalizeIdent("dc_title"))
	assert.Equal(t, "dctitle", NormalizeIdent("dcTitle"))
	assert.Equal(t, "", NormalizeIdent(""))
}

func TestTokenizeIdent(t *testing.T) {
	assert.Equal(t, []string{"record", "title"}, TokenizeIdent("recordTitle"))
	assert.Equal(t, []string{"xml", "parser"}, TokenizeIdent("XMLParser"))
	assert.Equal(t, []string{"dc", "title"}, TokenizeIdent("dc:title"))
	assert.Nil(t, TokenizeIdent(""))
}

func TestSuggest(t *testing.T) {
	known := []string{
		"http://purl.org/dc/elements/1.1/title",
		"http://purl.org/dc/elements/1.1/creator",
		"http://purl.org/dc/elements/1.1/date",
	}

	assert.Equal(t, []string{"http://purl.org/dc/elements/1.1/title"},
		Suggest("http://purl.org/dc/elements/1.1/titel", known, 3))
	assert.Empty(t, Suggest("http://example.org/zzzzzz", known, 3))
	assert.Nil(t, Suggest("title", known, 0))
}
