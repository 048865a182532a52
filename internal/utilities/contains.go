package utilities

import "slices"

// Contains reports whether v is one of values.
func Contains[T comparable](values []T, v T) bool {
	return slices.Contains(values, v)
}
