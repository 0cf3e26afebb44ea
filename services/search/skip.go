package search

import (
	"path/filepath"
	"strings"
)

// SkipPredicate reports whether a directory must never be enumerated.
type SkipPredicate func(path string) bool

// SkipNamed skips any directory whose last path segment equals name,
// ignoring case. An empty name skips nothing.
func SkipNamed(name string) SkipPredicate {
	if name == "" {
		return SkipNothing
	}
	return func(path string) bool {
		return strings.EqualFold(filepath.Base(path), name)
	}
}

func SkipNothing(string) bool {
	return false
}
