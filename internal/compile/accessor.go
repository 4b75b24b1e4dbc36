package compile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/common"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/schema"
)

// condition requires some value at path to match re.
type condition struct {
	Path    []string
	Pattern string
	re      *regexp.Regexp
}

// filter is a conjunction of conditions.
type filter []condition

// parseFilter reads a filter expression: a JSON object mapping attribute
// paths to regular expressions, or an array of such objects. All conditions
// must hold.
func parseFilter(f *model.Filter) (filter, error) {
	if f == nil || f.Expression == "" {
		return nil, nil
	}

	invalid := func(cause error) error {
		return domain.NewInvalidDocument(fmt.Sprintf("filter %q has an invalid expression", f.Name), cause)
	}

	var raw any
	if err := json.Unmarshal([]byte(f.Expression), &raw); err != nil {
		return nil, invalid(err)
	}

	var groups []any

	switch v := raw.(type) {
	case map[string]any:
		groups = []any{v}
	case []any:
		groups = v
	default:
		return nil, invalid(errors.New("expected an object or an array of objects"))
	}

	var out filter

	for _, g := range groups {
		obj, ok := g.(map[string]any)
		if !ok {
			return nil, invalid(errors.New("expected an object"))
		}

		for _, key := range common.SortedKeys(obj) {
			pattern, ok := obj[key].(string)
			if !ok {
				return nil, invalid(errors.Newf("condition on %q is not a string", key))
			}

			path, err := schema.ParsePathHelper(key)
			if err != nil {
				return nil, invalid(err)
			}

			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, invalid(err)
			}

			out = append(out, condition{Path: path.Attributes, Pattern: pattern, re: re})
		}
	}

	return out, nil
}

// matchesRecord reports whether every condition finds a matching value
// anywhere in the record.
func (f filter) matchesRecord(data map[string]any) bool {
	if len(f) == 0 {
		return false
	}

	for _, c := range f {
		if !slices.ContainsFunc(valuesAt(data, c.Path), c.re.MatchString) {
			return false
		}
	}

	return true
}

// candidate is one value found at an accessor's path together with the
// objects passed on the way; scopes[i] is the object at depth i.
type candidate struct {
	value  string
	scopes []map[string]any
}

// accessor reads the values of one mapping input from a record.
type accessor struct {
	Name     string
	Path     []string
	Readable string
	Filter   filter
	// Ordinal is 1-based; zero keeps every candidate.
	Ordinal  int
	Required bool
}

func (a *accessor) read(data map[string]any) []string {
	var cands []candidate

	collect(data, a.Path, []map[string]any{data}, &cands)

	if len(a.Filter) > 0 {
		cands = slices.DeleteFunc(cands, func(c candidate) bool { return !a.keep(c) })
	}

	if a.Ordinal > 0 {
		if a.Ordinal > len(cands) {
			return nil
		}

		cands = cands[a.Ordinal-1 : a.Ordinal]
	}

	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.value)
	}

	return out
}

// keep evaluates the filter relative to a candidate. A condition path is
// resolved from the deepest object it shares with the accessor's path, so
// that conditions on sibling attributes look at the same array element.
func (a *accessor) keep(c candidate) bool {
	for _, cond := range a.Filter {
		k := commonPrefix(a.Path, cond.Path)

		switch {
		case k == len(a.Path) && k == len(cond.Path):
			if !cond.re.MatchString(c.value) {
				return false
			}
		case k == len(cond.Path):
			// The condition names an object, never a value.
			return false
		default:
			if !slices.ContainsFunc(valuesAt(c.scopes[k], cond.Path[k:]), cond.re.MatchString) {
				return false
			}
		}
	}

	return true
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}

	return n
}

// collect walks path from obj, fanning out over arrays.
func collect(obj map[string]any, path []string, scopes []map[string]any, out *[]candidate) {
	v, ok := obj[path[0]]
	if !ok {
		return
	}

	if len(path) == 1 {
		for _, item := range leafItems(v) {
			if s, ok := scalar(item); ok {
				*out = append(*out, candidate{value: s, scopes: scopes})
			}
		}

		return
	}

	for _, item := range leafItems(v) {
		if child, ok := item.(map[string]any); ok {
			collect(child, path[1:], append(slices.Clip(scopes), child), out)
		}
	}
}

func valuesAt(obj map[string]any, path []string) []string {
	if len(path) == 0 {
		return nil
	}

	var cands []candidate

	collect(obj, path, nil, &cands)

	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.value)
	}

	return out
}

func leafItems(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}

	return []any{v}
}

// scalar renders a record value as a string. Objects and arrays nested at a
// leaf position are rendered as JSON.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}

		return string(b), true
	}
}
