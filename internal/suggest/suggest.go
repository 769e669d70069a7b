// Package suggest offers "did you mean" hints for mistyped CLI values such
// as roles, age groups and training names, using Levenshtein distance.
package suggest

import (
	"fmt"
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// Closest returns up to three values from valid that are near unknown,
// best first. Comparison ignores case.
func Closest(unknown string, valid []string) []string {
	unknown = strings.ToLower(strings.TrimSpace(unknown))

	type scored struct {
		value string
		score int
	}
	var candidates []scored
	for _, v := range valid {
		dist := levenshtein(unknown, strings.ToLower(v))
		// Only suggest if reasonably close (within 3 edits or 50% of length)
		if dist <= max(3, len(unknown)/2) {
			candidates = append(candidates, scored{v, dist})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	var result []string
	for i := 0; i < len(candidates) && i < 3; i++ {
		result = append(result, candidates[i].value)
	}
	return result
}

// Match returns the entry of valid equal to value ignoring case. When none
// matches, the error names what was expected and the closest entries.
func Match(kind, value string, valid []string) (string, error) {
	for _, v := range valid {
		if strings.EqualFold(strings.TrimSpace(value), v) {
			return v, nil
		}
	}
	if hints := Closest(value, valid); len(hints) > 0 {
		return "", fmt.Errorf("unknown %s %q (did you mean %s?)", kind, value, strings.Join(quoteAll(hints), " or "))
	}
	return "", fmt.Errorf("unknown %s %q (want one of %s)", kind, value, strings.Join(valid, ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
