package match

import (
	"cmp"
	"slices"
)

// minSuggestScore is the similarity below which a name is not worth offering.
const minSuggestScore = 0.5

type scored struct {
	name  string
	score float64
}

// Suggest returns up to n entries of known that look like name, best first.
// Entries are compared by their normalized local names, so full URIs work.
func Suggest(name string, known []string, n int) []string {
	if n <= 0 || len(known) == 0 {
		return nil
	}

	target := NormalizeIdent(LocalName(name))

	var ranked []scored

	for _, k := range known {
		s := Similarity(target, NormalizeIdent(LocalName(k)))
		if s < minSuggestScore {
			continue
		}

		ranked = append(ranked, scored{name: k, score: s})
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}

		return cmp.Compare(a.name, b.name)
	})

	out := make([]string, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.name)
	}

	return out
}
