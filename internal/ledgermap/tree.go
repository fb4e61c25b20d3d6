package ledgermap

// DefaultMaxDepth is the recursion ceiling for DecodeNode. Tree depth is
// controlled by whoever wrote the payload, so it must be bounded.
const DefaultMaxDepth = 20

// DecodeNode flattens a tree node into its key/value pairs, depth-first and
// left-to-right, so the result follows the key order of the source map.
// Nodes deeper than maxDepth and nodes of unknown shape contribute nothing.
func DecodeNode(node any, depth, maxDepth int) []Pair {
	if depth > maxDepth {
		return nil
	}
	m, ok := asObject(node)
	if !ok {
		return nil
	}
	children, ok := childEntries(m["children"])
	if !ok {
		return nil
	}

	// A leaf needs the flag and direct entries; Inner pointers make it internal.
	if truthy(m["is_leaf"]) && !hasInnerSlots(children) {
		return slotPairs(children)
	}

	var out []Pair
	for _, c := range children {
		value, ok := slotValue(c)
		if !ok {
			continue
		}
		out = append(out, DecodeNode(childNode(value), depth+1, maxDepth)...)
	}
	return out
}

func slotPairs(children []any) []Pair {
	out := make([]Pair, 0, len(children))
	for _, c := range children {
		rawKey, value, ok := keyValue(c)
		if !ok {
			continue
		}
		key, ok := ParseKey(rawKey)
		if !ok {
			continue
		}
		out = append(out, Pair{Key: key, Value: value})
	}
	return out
}

// childEntries exposes the ordered {key, value} slots of a children field.
// Both a bare array and the sorted-vector / simple-map objects are accepted.
func childEntries(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case map[string]any:
		for _, f := range []string{"entries", "data"} {
			if arr, ok := c[f].([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// keyValue reads a slot encoded either as {key, value} or as [key, value].
// Both halves must be present.
func keyValue(v any) (any, any, bool) {
	switch kv := v.(type) {
	case map[string]any:
		k, kok := kv["key"]
		val, vok := kv["value"]
		if !kok || !vok || k == nil || val == nil {
			return nil, nil, false
		}
		return k, val, true
	case []any:
		if len(kv) != 2 || kv[0] == nil || kv[1] == nil {
			return nil, nil, false
		}
		return kv[0], kv[1], true
	}
	return nil, nil, false
}

// slotValue reads the value half of a slot. The key is optional: internal
// children may be encoded as bare {value} pointers.
func slotValue(v any) (any, bool) {
	switch kv := v.(type) {
	case map[string]any:
		val, ok := kv["value"]
		if !ok || val == nil {
			return nil, false
		}
		return val, true
	case []any:
		if len(kv) != 2 || kv[1] == nil {
			return nil, false
		}
		return kv[1], true
	}
	return nil, false
}

func hasInnerSlots(children []any) bool {
	for _, c := range children {
		value, ok := slotValue(c)
		if !ok {
			continue
		}
		if m, ok := asObject(value); ok && variantOf(m) == VariantInner {
			return true
		}
	}
	return false
}

// childNode strips the optional Inner wrapper around a child pointer.
func childNode(v any) any {
	if m, ok := asObject(v); ok && variantOf(m) == VariantInner {
		if n, ok := m["node"]; ok {
			return n
		}
	}
	return v
}
