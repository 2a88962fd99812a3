// Package enums defines the string enums persisted as Postgres enum types.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse matches raw against set case-insensitively after trimming.
func parse[T ~string](kind, raw string, set []T) (T, error) {
	want := strings.ToLower(strings.TrimSpace(raw))
	for _, v := range set {
		if string(v) == want {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
