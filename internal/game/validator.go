package game

import "strings"

// Normalize lowercases s and trims surrounding Unicode whitespace
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateAnswer compares a guess with the expected answer after
// normalization. There is no fuzzy matching and no diacritic folding, so
// "Bogota" does not match "Bogotá". An empty expected answer never matches.
func ValidateAnswer(guess, expected string) bool {
	want := Normalize(expected)
	if want == "" {
		return false
	}
	return Normalize(guess) == want
}
