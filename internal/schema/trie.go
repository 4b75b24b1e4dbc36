package schema

import (
	"slices"
	"strings"
)

// Trie stores attribute paths by shared prefix.
type Trie struct {
	root *trieNode
	size int
}

type trieNode struct {
	attribute  string
	path       []string
	children   map[string]*trieNode
	declared   bool
	required   *bool
	multivalue *bool
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &trieNode{children: make(map[string]*trieNode)}}
}

// BuildTrie inserts all paths into a new trie.
func BuildTrie(paths []PathHelper) *Trie {
	t := NewTrie()
	for _, p := range paths {
		t.Insert(p)
	}

	return t
}

// Insert adds a path. Inserting a path that is already present merges its
// flags and returns false.
func (t *Trie) Insert(h PathHelper) bool {
	if h.Depth() == 0 {
		return false
	}

	n := t.root
	for _, a := range h.Attributes {
		c, ok := n.children[a]
		if !ok {
			c = &trieNode{
				attribute: a,
				path:      append(slices.Clip(n.path), a),
				children:  make(map[string]*trieNode),
			}
			n.children[a] = c
		}

		n = c
	}

	n.required = mergeFlag(n.required, h.Required)
	n.multivalue = mergeFlag(n.multivalue, h.Multivalue)

	if n.declared {
		return false
	}

	n.declared = true
	t.size++

	return true
}

// Len returns the number of distinct paths inserted.
func (t *Trie) Len() int {
	return t.size
}

// Contains reports whether exactly this path was inserted.
func (t *Trie) Contains(h PathHelper) bool {
	_, ok := t.Lookup(h)
	return ok
}

// Lookup returns the stored helper, with merged flags, for an inserted path.
func (t *Trie) Lookup(h PathHelper) (PathHelper, bool) {
	n := t.find(h)
	if n == nil || !n.declared {
		return PathHelper{}, false
	}

	return n.helper(), true
}

// Depth returns the length of the longest path.
func (t *Trie) Depth() int {
	return len(t.Levels())
}

// Levels returns one entry per depth holding the helpers of every node at
// that depth, declared or not. Nodes are ordered parent first, then by URI.
func (t *Trie) Levels() [][]PathHelper {
	var levels [][]PathHelper

	for _, nodes := range t.levelNodes() {
		hs := make([]PathHelper, 0, len(nodes))
		for _, n := range nodes {
			hs = append(hs, n.helper())
		}

		levels = append(levels, hs)
	}

	return levels
}

// Paths returns the inserted paths, shortest first.
func (t *Trie) Paths() []PathHelper {
	var out []PathHelper

	for _, nodes := range t.levelNodes() {
		for _, n := range nodes {
			if n.declared {
				out = append(out, n.helper())
			}
		}
	}

	return out
}

func (t *Trie) find(h PathHelper) *trieNode {
	if h.Depth() == 0 {
		return nil
	}

	n := t.root
	for _, a := range h.Attributes {
		c, ok := n.children[a]
		if !ok {
			return nil
		}

		n = c
	}

	return n
}

func (t *Trie) levelNodes() [][]*trieNode {
	var levels [][]*trieNode

	current := []*trieNode{t.root}
	for {
		var next []*trieNode
		for _, n := range current {
			next = append(next, n.sortedChildren()...)
		}

		if len(next) == 0 {
			return levels
		}

		levels = append(levels, next)
		current = next
	}
}

func (n *trieNode) sortedChildren() []*trieNode {
	out := make([]*trieNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b *trieNode) int {
		return strings.Compare(a.attribute, b.attribute)
	})

	return out
}

func (n *trieNode) leaf() bool {
	return len(n.children) == 0
}

func (n *trieNode) helper() PathHelper {
	return PathHelper{
		Attributes: slices.Clone(n.path),
		Required:   n.required,
		Multivalue: n.multivalue,
	}
}
