package testutil

import "strconv"

// KV is one map slot for the payload builders.
type KV struct {
	Key   any
	Value any
}

// Message builds a plain-text message entry value.
func Message(text string) map[string]any {
	return map[string]any{"__variant__": "Message", "message": text}
}

// LeafSlot wraps an entry value the way leaf slots store it.
func LeafSlot(inner any) map[string]any {
	return map[string]any{"__variant__": "Leaf", "value": inner}
}

// Note builds a leaf slot holding a message keyed by a string timestamp.
func Note(ts int64, text string) KV {
	return KV{Key: strconv.FormatInt(ts, 10), Value: LeafSlot(Message(text))}
}

// Leaf builds a leaf node whose children use the sorted-vector encoding.
func Leaf(slots ...KV) map[string]any {
	entries := make([]any, 0, len(slots))
	for _, s := range slots {
		entries = append(entries, map[string]any{"key": s.Key, "value": s.Value})
	}
	return map[string]any{
		"is_leaf":  true,
		"children": map[string]any{"__variant__": "SortedVectorMap", "entries": entries},
	}
}

// Internal builds an internal node pointing at the given child nodes in order.
func Internal(nodes ...any) map[string]any {
	entries := make([]any, 0, len(nodes))
	for i, n := range nodes {
		entries = append(entries, map[string]any{
			"key":   strconv.Itoa(i),
			"value": map[string]any{"__variant__": "Inner", "node": n},
		})
	}
	return map[string]any{
		"is_leaf":  false,
		"children": map[string]any{"__variant__": "SortedVectorMap", "entries": entries},
	}
}

// TreeMap builds a tagged tree-root map payload.
func TreeMap(root any) map[string]any {
	return map[string]any{"__variant__": "BPlusTreeMap", "root": root, "leaf_max_degree": 64}
}

// Resource builds a ledger resource body carrying payload under field.
func Resource(resourceType, field string, payload any) map[string]any {
	return map[string]any{
		"type": resourceType,
		"data": map[string]any{field: payload},
	}
}
