package compile

import (
	"slices"
	"strconv"

	"metadata-mapper/internal/model"
)

type field struct {
	path       []string
	multivalue bool
	values     []string
}

// outputBuilder collects the values written by the mappings of one record.
// Values written twice to the same path accumulate.
type outputBuilder struct {
	fields []*field
	index  map[string]*field
}

func newOutputBuilder() *outputBuilder {
	return &outputBuilder{index: make(map[string]*field)}
}

func (b *outputBuilder) add(path []string, key string, multivalue bool, values []string) {
	if f, ok := b.index[key]; ok {
		f.values = append(f.values, values...)
		return
	}

	f := &field{path: path, multivalue: multivalue, values: slices.Clone(values)}
	b.fields = append(b.fields, f)
	b.index[key] = f
}

func (b *outputBuilder) empty() bool {
	return len(b.fields) == 0
}

// build assembles the output records. Every single-valued field holding
// several values multiplies the number of records; at most limit records
// are built when limit is positive. The second result reports truncation.
func (b *outputBuilder) build(id string, limit int) ([]model.Record, bool) {
	var dims []*field

	total := 1
	truncated := false

	for _, f := range b.fields {
		if f.multivalue || len(f.values) < 2 {
			continue
		}

		dims = append(dims, f)

		total *= len(f.values)
		if limit > 0 && total > limit {
			total = limit
			truncated = true
		}
	}

	choice := make([]int, len(dims))
	pick := make(map[*field]int, len(dims))
	out := make([]model.Record, 0, total)

	for n := range total {
		for i, f := range dims {
			pick[f] = choice[i]
		}

		data := make(map[string]any)

		for _, f := range b.fields {
			var v any

			if f.multivalue {
				items := make([]any, len(f.values))
				for i, s := range f.values {
					items[i] = s
				}

				v = items
			} else {
				v = f.values[pick[f]]
			}

			setPath(data, f.path, v)
		}

		rid := id
		if n > 0 {
			rid = id + "#" + strconv.Itoa(n+1)
		}

		out = append(out, model.Record{ID: rid, Data: data})

		// Advance the odometer, last dimension fastest.
		for i := len(dims) - 1; i >= 0; i-- {
			choice[i]++
			if choice[i] < len(dims[i].values) {
				break
			}

			choice[i] = 0
		}
	}

	return out, truncated
}

func setPath(obj map[string]any, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		child, ok := obj[k].(map[string]any)
		if !ok {
			child = make(map[string]any)
			obj[k] = child
		}

		obj = child
	}

	obj[path[len(path)-1]] = v
}
