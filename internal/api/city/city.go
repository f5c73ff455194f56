package city

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds a city name to one canonical comparison key: accents and
// diacritics removed (München -> munchen, São Paulo -> sao paulo),
// lowercased, trimmed. Locale variants of the same city collapse to the same
// key, which keeps "same location" checks robust.
func Normalize(name string) string {
	decomposed := norm.NFD.String(name)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}

// SameCity reports whether two city names collapse to the same normalized key.
func SameCity(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// InAddress reports whether an address likely belongs to the requested city.
// No hardcoded city mappings; it layers a few strategies instead:
//  1. exact substring match (case-insensitive)
//  2. normalized substring match (accents removed)
//  3. per-token match against the address
//  4. edit distance on tokens, for transliteration variants
//     (Lisboa vs Lisbon, Moscow vs Moskva)
func InAddress(requestedCity, address string) bool {
	addressLower := strings.ToLower(address)
	cityLower := strings.ToLower(strings.TrimSpace(requestedCity))

	if cityLower == "" {
		return false
	}
	if strings.Contains(addressLower, cityLower) {
		return true
	}

	cityNormalized := Normalize(requestedCity)
	addressNormalized := Normalize(address)
	if strings.Contains(addressNormalized, cityNormalized) {
		return true
	}

	tokens := strings.Fields(strings.ReplaceAll(addressLower, ",", " "))
	for _, token := range tokens {
		token = strings.Trim(token, ".,;-")
		if len(token) < 3 {
			continue
		}
		if token == cityLower {
			return true
		}
		tokenNormalized := Normalize(token)
		if tokenNormalized == cityNormalized {
			return true
		}
		// Allow 30% difference, minimum 3, for cities with 4+ letters.
		if len(cityNormalized) >= 4 {
			maxDistance := max(3, len(cityNormalized)/3)
			if levenshteinDistance(cityNormalized, tokenNormalized) <= maxDistance {
				return true
			}
		}
	}
	return false
}

// levenshteinDistance is the minimum number of single-character edits needed
// to transform s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	previousRow := make([]int, len(s2)+1)
	for j := range previousRow {
		previousRow[j] = j
	}
	for i := 0; i < len(s1); i++ {
		currentRow := make([]int, 0, len(s2)+1)
		currentRow = append(currentRow, i+1)
		for j := 0; j < len(s2); j++ {
			insertions := previousRow[j+1] + 1
			deletions := currentRow[j] + 1
			substitutions := previousRow[j]
			if s1[i] != s2[j] {
				substitutions++
			}
			currentRow = append(currentRow, min(insertions, deletions, substitutions))
		}
		previousRow = currentRow
	}
	return previousRow[len(s2)]
}
