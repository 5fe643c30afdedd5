package types

// SliceContains reports whether value is in values.
func SliceContains[T comparable](values []T, value T) bool {
	for i := range values {
		if values[i] == value {
			return true
		}
	}
	return false
}

// SliceUnique drops repeated values. The first occurrence keeps its position.
func SliceUnique[T comparable](values []T) []T {
	var res []T
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	return res
}

// SliceUnion returns the values of base followed by the values of extra not already present.
// Neither input is modified.
func SliceUnion[T comparable](base []T, extra ...T) []T {
	res := make([]T, 0, len(base)+len(extra))
	res = append(res, base...)
	res = append(res, extra...)
	return SliceUnique(res)
}

// SliceFindDuplicate returns the first value seen twice in the given slice.
func SliceFindDuplicate[T comparable](slice []T) (T, bool) {
	visited := make(map[T]bool)
	for _, item := range slice {
		if visited[item] {
			return item, true
		}
		visited[item] = true
	}
	var empty T
	return empty, false
}
