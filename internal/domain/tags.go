package domain

import (
	"sort"
	"strings"
)

// NormalizeTags lower-cases and trims tag names, drops empties and duplicates,
// and returns them sorted. The result is never nil.
func NormalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
