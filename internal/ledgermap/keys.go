package ledgermap

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseKey coerces a raw map key to a non-negative integer. Numbers and
// numeric strings go through the same decimal parse.
func ParseKey(raw any) (int64, bool) {
	var s string
	switch k := raw.(type) {
	case string:
		s = strings.TrimSpace(k)
	case json.Number:
		s = k.String()
	case float64:
		if k != math.Trunc(k) || math.IsInf(k, 0) {
			return 0, false
		}
		s = strconv.FormatFloat(k, 'f', -1, 64)
	case int:
		s = strconv.Itoa(k)
	case int64:
		s = strconv.FormatInt(k, 10)
	case uint64:
		s = strconv.FormatUint(k, 10)
	default:
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
