package opencode

// DeepEqual compares two decoded JSON values. Object key order does not
// matter, array order does, and nil only equals nil.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil

	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !DeepEqual(v, other) {
				return false
			}
		}
		return true

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true

	case string, float64, bool:
		return a == b

	default:
		return false
	}
}
