// Package match resolves user-supplied item and meal names against stored
// records when no database ID is available.
package match

import "strings"

// Normalize lower-cases and trims name, then strips one plural suffix.
//
// "es" is stripped only after o, x, ch, sh or ss ("tomatoes", "boxes",
// "peaches"); otherwise a single trailing "s" is stripped ("apples", "peas").
// Words ending in "ss" are left alone so "glass" and "glasses" agree.
// Short words still conflate: "bus" normalizes to "bu".
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(n, "ss"):
		return n
	case strings.HasSuffix(n, "es") && esPlural(n[:len(n)-2]):
		return n[:len(n)-2]
	case strings.HasSuffix(n, "s"):
		return n[:len(n)-1]
	}
	return n
}

func esPlural(stem string) bool {
	if len(stem) < 2 {
		return false
	}
	for _, suffix := range []string{"ch", "sh", "ss", "o", "x"} {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

// Equal reports whether a and b normalize to the same name.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Find returns the first candidate whose name normalizes to the same value as
// query, and false when there is none.
func Find[T any](query string, candidates []T, name func(T) string) (T, bool) {
	want := Normalize(query)
	for _, c := range candidates {
		if Normalize(name(c)) == want {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// Index returns the position of the first matching candidate, or -1.
func Index[T any](query string, candidates []T, name func(T) string) int {
	want := Normalize(query)
	for i, c := range candidates {
		if Normalize(name(c)) == want {
			return i
		}
	}
	return -1
}
