package util

// Filter returns the elements for which "keep" returns true, in the original order.
func Filter[T any](src []T, keep func(T) bool) []T {
	var res []T
	for _, v := range src {
		if keep(v) {
			res = append(res, v)
		}
	}
	return res
}
