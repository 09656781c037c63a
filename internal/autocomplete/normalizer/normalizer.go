// Package normalizer folds arbitrary text into the canonical ASCII form used
// for every autocomplete index key. The same function runs on the index path
// and the query path so that prefixes compare byte for byte.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transliterations covers letters and symbols that have no canonical
// decomposition into an ASCII base character.
var transliterations = map[rune]string{
	'ß': "ss", 'ẞ': "SS",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ð': "d", 'Ð': "D",
	'þ': "th", 'Þ': "TH",
	'ı': "i",
	'‘': "'", '’': "'", '‚': "'",
	'“': `"`, '”': `"`, '„': `"`,
	'–': "-", '—': "-",
	'€': "EUR", '£': "GBP",
}

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// Normalize returns text transliterated to ASCII, lowercased and trimmed.
// Characters with no reasonable ASCII mapping are dropped. Normalize never
// fails and is idempotent.
func Normalize(text string) string {
	if isPlainASCII(text) {
		return strings.ToLower(strings.TrimSpace(text))
	}
	// Transformers carry state, so the chain is built per call.
	fold := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(nonASCII),
	)
	folded, _, err := transform.String(fold, transliterate(text))
	if err != nil {
		folded = stripNonASCII(text)
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if repl, ok := transliterations[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripNonASCII(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
