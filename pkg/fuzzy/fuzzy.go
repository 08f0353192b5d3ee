// Package fuzzy provides approximate string matching for tolerating typos
// in model-chosen tool names.
package fuzzy

import "strings"

// Distance returns the Levenshtein edit distance between two strings,
// case-insensitive.
func Distance(s1, s2 string) int {
	r1 := []rune(strings.ToLower(s1))
	r2 := []rune(strings.ToLower(s2))
	m, n := len(r1), len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// Closest returns the candidate with the smallest edit distance to query,
// provided that distance does not exceed maxDistance. The second return is
// false when no candidate qualifies.
func Closest(query string, candidates []string, maxDistance int) (string, bool) {
	best := ""
	bestDist := maxDistance + 1
	for _, c := range candidates {
		if d := Distance(query, c); d < bestDist {
			best = c
			bestDist = d
		}
	}
	if bestDist > maxDistance {
		return "", false
	}
	return best, true
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
