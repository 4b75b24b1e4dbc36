package schema

import (
	"metadata-mapper/internal/match"
	"metadata-mapper/internal/model"
)

// Minter hands out fresh dummy ids, counting down from -1.
type Minter struct {
	next model.ID
}

// NewMinter returns a minter whose first id is -1.
func NewMinter() *Minter {
	return &Minter{next: -1}
}

// Next returns an unused dummy id.
func (m *Minter) Next() model.ID {
	id := m.next
	m.next--

	return id
}

// MintSchema converts every node of the trie, declared or implied by a
// longer path, into an attribute path and a schema instance. Entities get
// dummy ids from m; attributes with the same URI are shared.
func MintSchema(name string, recordClass *model.RecordClass, t *Trie, m *Minter) *model.Schema {
	s := &model.Schema{ID: m.Next(), Name: name, RecordClass: recordClass}
	attrs := make(map[string]*model.Attribute)

	for _, level := range t.Levels() {
		for _, h := range level {
			path := &model.AttributePath{ID: m.Next()}

			for _, uri := range h.Attributes {
				a, ok := attrs[uri]
				if !ok {
					a = &model.Attribute{ID: m.Next(), Name: match.LocalName(uri), URI: uri}
					attrs[uri] = a
				}

				path.Attributes = append(path.Attributes, a)
			}

			inst := &model.SchemaAttributePathInstance{
				AttributePathInstance: model.AttributePathInstance{
					ID:            m.Next(),
					Name:          match.LocalName(h.Last()),
					AttributePath: path,
				},
				Required:   h.IsRequired(),
				Multivalue: h.IsMultivalue(),
			}

			s.AttributePaths = append(s.AttributePaths, inst)
		}
	}

	return s
}

// TrieFromSchema collects the attribute paths of a schema into a trie.
func TrieFromSchema(s *model.Schema) *Trie {
	t := NewTrie()
	if s == nil {
		return t
	}

	for _, inst := range s.AttributePaths {
		if inst.AttributePath == nil {
			continue
		}

		h := FromAttributePath(inst.AttributePath)
		h.Required = boolPtr(inst.Required)
		h.Multivalue = boolPtr(inst.Multivalue)
		t.Insert(h)
	}

	return t
}
