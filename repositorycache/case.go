package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake converts a Go type name to snake_case for use as a cache namespace.
// Anything that is not a letter or digit separates words, so reflected names
// like *Student or List[Student] never leak glob characters into a key.
func toSnake(s string) string {
	runes := []rune(s)
	words := make([]string, 0, 4)
	var word []rune

	flush := func() {
		if len(word) > 0 {
			words = append(words, string(word))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 && startsWord(runes, i) {
			flush()
		}
		word = append(word, unicode.ToLower(r))
	}
	flush()

	return strings.Join(words, "_")
}

// startsWord reports whether runes[i] begins a new word. i must be > 0.
func startsWord(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	switch {
	case unicode.IsUpper(r):
		if unicode.IsLower(prev) || unicode.IsDigit(prev) {
			return true
		}
		// The last capital of an acronym starts the next word: HTTPRequest.
		return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
	case unicode.IsDigit(r):
		return !unicode.IsDigit(prev)
	}
	return false
}
