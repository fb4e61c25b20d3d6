// Package ledgermap decodes the persisted ordered-map resource of the ledger
// into a flat, key-ordered sequence of entries.
//
// Payloads arrive as generic JSON values (map[string]any, []any, string,
// json.Number, float64, bool, nil). Nothing here trusts their shape: every
// accessor degrades to "no match" instead of failing.
package ledgermap

// Field names and discriminants of the on-ledger encoding.
const (
	VariantField = "__variant__"

	VariantTree    = "BPlusTreeMap"
	VariantLeaf    = "Leaf"
	VariantInner   = "Inner"
	VariantMessage = "Message"
)

// Pair is one key/value slot recovered from the map, in source order.
type Pair struct {
	Key   int64
	Value any
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func variantOf(m map[string]any) string {
	s, _ := m[VariantField].(string)
	return s
}

// truthy accepts the boolean-like encodings seen for leaf flags.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	}
	return false
}
