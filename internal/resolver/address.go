// Package resolver maps a user identifier to the address of the user's
// storage object, preferring the indexer and falling back to the ledger.
package resolver

import (
	"fmt"
	"strings"
)

// NormalizeAddress accepts a bare address string or an optional wrapper
// ({"vec": []} / {"vec": [addr]}) and returns the canonical string.
func NormalizeAddress(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case map[string]any:
		vec, ok := v["vec"].([]any)
		if !ok || len(vec) == 0 || vec[0] == nil {
			return "", false
		}
		return NormalizeAddress(stringify(vec[0]))
	}
	return "", false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}
