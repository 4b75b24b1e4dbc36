package schema

import (
	"metadata-mapper/internal/common"
)

// PathsFromRecord derives the attribute paths present in a nested record.
// Arrays mark their path as multivalue; objects contribute their members;
// every other value ends a path.
func PathsFromRecord(data map[string]any) []PathHelper {
	var out []PathHelper

	walkRecord(nil, data, &out)

	return out
}

func walkRecord(prefix []string, obj map[string]any, out *[]PathHelper) {
	for _, key := range common.SortedKeys(obj) {
		path := append(append([]string(nil), prefix...), key)
		walkValue(path, obj[key], out)
	}
}

func walkValue(path []string, v any, out *[]PathHelper) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			*out = append(*out, PathHelper{Attributes: path})
			return
		}

		walkRecord(path, t, out)
	case []any:
		*out = append(*out, PathHelper{Attributes: path, Multivalue: boolPtr(true)})

		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				walkRecord(path, m, out)
			}
		}
	default:
		*out = append(*out, PathHelper{Attributes: path})
	}
}
