// Package prefix expands a normalized term into the prefixes it is indexed
// under: every leading substring of every whitespace-delimited word.
package prefix

import (
	"strings"
	"unicode/utf8"
)

// Expand returns, for each word of term in order, its leading substrings
// from one character up to the whole word. A word of length L contributes
// exactly L entries. Identical prefixes from different words are kept.
func Expand(term string) []string {
	words := strings.Fields(term)
	out := make([]string, 0, Count(term))
	for _, word := range words {
		for i, r := range word {
			out = append(out, word[:i+utf8.RuneLen(r)])
		}
	}
	return out
}

// Count returns len(Expand(term)) without allocating the prefixes.
func Count(term string) int {
	n := 0
	for _, word := range strings.Fields(term) {
		n += utf8.RuneCountInString(word)
	}
	return n
}
