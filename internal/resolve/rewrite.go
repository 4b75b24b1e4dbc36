package resolve

import (
	"encoding/json"
	"strconv"

	"metadata-mapper/internal/model"
)

const idKey = "id"

// opaqueKeys hold client data that never contains entity references.
var opaqueKeys = map[string]bool{
	"parameters":           true,
	"parameter_mappings":   true,
	"function_description": true,
	"expression":           true,
}

// CollectDummyIDs returns every negative "id" value in a raw document.
func CollectDummyIDs(raw any) map[model.ID]struct{} {
	ids := make(map[model.ID]struct{})

	walkIDs(raw, func(obj map[string]any) {
		if id, ok := rawID(obj[idKey]); ok && id.IsDummy() {
			ids[id] = struct{}{}
		}
	})

	return ids
}

// rewriteIDs replaces every "id" value found in resolved.
func rewriteIDs(raw any, resolved map[model.ID]model.ID) {
	if len(resolved) == 0 {
		return
	}

	walkIDs(raw, func(obj map[string]any) {
		id, ok := rawID(obj[idKey])
		if !ok {
			return
		}

		if real, ok := resolved[id]; ok {
			obj[idKey] = json.Number(strconv.FormatInt(int64(real), 10))
		}
	})
}

func walkIDs(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		visit(t)

		for k, e := range t {
			if k == idKey || opaqueKeys[k] {
				continue
			}

			walkIDs(e, visit)
		}
	case []any:
		for _, e := range t {
			walkIDs(e, visit)
		}
	}
}

func rawID(v any) (model.ID, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}

		return model.ID(i), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}

		return model.ID(n), true
	default:
		return 0, false
	}
}
