package compile

import (
	"slices"

	"github.com/cockroachdb/errors"
)

var errCycle = errors.New("cycle detected")

// topoSort returns step indices in evaluation order.
//
// depsFn(i) yields the steps whose output i consumes. When several steps are
// ready the smallest index goes first, so the order follows declaration
// order wherever the dependencies allow it.
func topoSort(n int, depsFn func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)

	for i := range n {
		for _, d := range depsFn(i) {
			if d < 0 || d >= n {
				return nil, errors.Newf("dependency index out of range: %d depends on %d", i, d)
			}

			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	for i := range out {
		slices.Sort(out[i])
	}

	var ready []int

	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, i)

		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}

	if len(order) != n {
		return nil, errCycle
	}

	return order, nil
}

// findCycle returns one dependency cycle as a list of step indices whose
// first and last entries are equal, or nil when the graph is acyclic.
func findCycle(n int, depsFn func(i int) []int) []int {
	const (
		white = iota
		grey
		black
	)

	color := make([]int, n)

	var stack []int

	var visit func(i int) []int
	visit = func(i int) []int {
		color[i] = grey
		stack = append(stack, i)

		for _, d := range depsFn(i) {
			switch color[d] {
			case grey:
				start := slices.Index(stack, d)
				cycle := slices.Clone(stack[start:])

				return append(cycle, d)
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[i] = black

		return nil
	}

	for i := range n {
		if color[i] == white {
			if c := visit(i); c != nil {
				return c
			}
		}
	}

	return nil
}
