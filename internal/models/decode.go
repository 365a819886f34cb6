package models

import "encoding/json"

// Decoding helpers for snapshots coming out of the schemaless store. The
// in-memory store hands back native Go values while the persisted store
// round-trips through JSON, so numbers may arrive as int, int64, float64 or
// json.Number. Anything unexpected decodes to the zero value.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func asInt(v any) int {
	return int(asInt64(v))
}
