package handlers

import "strings"

// suggestionCutoff is the minimum similarity ratio for a city suggestion.
const suggestionCutoff = 0.7

// matchCity checks a user-typed city against the served city list.
// Exact (case-insensitive) matches win; otherwise a prefix or a substring
// covering at least half the candidate counts as a match. When nothing
// matches, close names are returned as suggestions.
func matchCity(input string, cities []string) (matched string, ok bool, suggestions []string) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", false, nil
	}

	for _, city := range cities {
		if strings.ToLower(city) == needle {
			return city, true, nil
		}
	}

	for _, city := range cities {
		lower := strings.ToLower(city)
		if strings.HasPrefix(lower, needle) {
			return city, true, nil
		}
		if strings.Contains(lower, needle) && len(needle)*2 >= len(lower) {
			return city, true, nil
		}
	}

	for _, city := range cities {
		if similarity(needle, strings.ToLower(city)) >= suggestionCutoff {
			suggestions = append(suggestions, city)
		}
	}
	return "", false, suggestions
}

// similarity is a normalized edit-distance ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
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
