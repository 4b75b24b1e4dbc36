package schema

import (
	"github.com/cockroachdb/errors"
)

// NodeContext describes a node while its shape is decided.
type NodeContext struct {
	// Prefix is the path to the node, with flags when the path was declared.
	Prefix PathHelper
	// Level holds every node at the same depth, including this one.
	Level []PathHelper
	Leaf  bool
}

// ArrayPolicy decides whether a node renders as an array.
type ArrayPolicy func(NodeContext) bool

// MultivalueFlagPolicy renders a node as an array only when its path was
// declared with Multivalue set.
func MultivalueFlagPolicy(ctx NodeContext) bool {
	return ctx.Prefix.IsMultivalue()
}

// SiblingPrefixPolicy treats an inner node as an array whenever some other
// node shares its level. It mirrors an older inference rule and is kept for
// comparison against flagged data; it over-reports arrays on wide records.
func SiblingPrefixPolicy(ctx NodeContext) bool {
	if ctx.Leaf {
		return false
	}

	for _, p := range ctx.Level {
		if !p.HasPrefix(ctx.Prefix) {
			return true
		}
	}

	return false
}

// PolicyByName returns the policy called "multivalue" (also the empty name)
// or "sibling".
func PolicyByName(name string) (ArrayPolicy, error) {
	switch name {
	case "", "multivalue":
		return MultivalueFlagPolicy, nil
	case "sibling":
		return SiblingPrefixPolicy, nil
	default:
		return nil, errors.Newf("unknown array policy %q", name)
	}
}

// Induce builds a document from paths using MultivalueFlagPolicy.
func Induce(title string, paths []PathHelper) *Document {
	return InduceWith(title, BuildTrie(paths), MultivalueFlagPolicy)
}

// InduceWith builds a document from a trie, one level at a time. Within an
// object, children without further levels come first, then the rest; each
// group is ordered by attribute URI so repeated runs yield the same document.
func InduceWith(title string, t *Trie, policy ArrayPolicy) *Document {
	if policy == nil {
		policy = MultivalueFlagPolicy
	}

	type pending struct {
		node   *trieNode
		target *Document
	}

	root := &Document{Title: title, Type: TypeObject}
	queue := []pending{{node: t.root, target: root}}
	levels := t.Levels()

	for depth := 0; len(queue) > 0; depth++ {
		var next []pending

		for _, p := range queue {
			for _, c := range leavesFirst(p.node.sortedChildren()) {
				ctx := NodeContext{Prefix: c.helper(), Level: levels[depth], Leaf: c.leaf()}
				asArray := policy(ctx)

				var child *Document

				if ctx.Leaf {
					child = &Document{Title: c.attribute, Type: TypeString}
					if asArray {
						child = &Document{Title: c.attribute, Type: TypeArray, Items: &Document{Type: TypeString}}
					}
				} else {
					obj := &Document{Type: TypeObject}
					if asArray {
						child = &Document{Title: c.attribute, Type: TypeArray, Items: obj}
					} else {
						obj.Title = c.attribute
						child = obj
					}

					next = append(next, pending{node: c, target: obj})
				}

				p.target.Properties = append(p.target.Properties, Property{Key: c.attribute, Schema: child})
			}
		}

		queue = next
	}

	return root
}

func leavesFirst(nodes []*trieNode) []*trieNode {
	out := make([]*trieNode, 0, len(nodes))

	for _, n := range nodes {
		if n.leaf() {
			out = append(out, n)
		}
	}

	for _, n := range nodes {
		if !n.leaf() {
			out = append(out, n)
		}
	}

	return out
}
