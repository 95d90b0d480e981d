package threecrumbs

import "strings"

var apostrophes = strings.NewReplacer("‘", "'", "’", "'")

// Normalize trims, lowercases and straightens curly apostrophes.
func Normalize(text string) string {
	return apostrophes.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// Levenshtein returns the edit distance between a and b, counting runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// MaxDistance is the typo tolerance for an answer of the given length.
func MaxDistance(length int) int {
	switch {
	case length <= 5:
		return 1
	case length <= 10:
		return 2
	}
	return 3
}

// IsCorrectAnswer matches guess against the answer and its alternates.
func IsCorrectAnswer(guess string, q Question) bool {
	g := Normalize(guess)
	if g == "" {
		return false
	}
	for _, candidate := range append([]string{q.Answer}, q.AlternateAnswers...) {
		c := Normalize(candidate)
		if g == c {
			return true
		}
		if Levenshtein(g, c) <= MaxDistance(len([]rune(c))) {
			return true
		}
	}
	return false
}
