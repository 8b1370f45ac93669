// Package normalize folds text into the canonical form used for substring
// search: text is lowercased, accents and non-Latin scripts are transliterated
// to ASCII where a mapping exists, and the result is lowercased again.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// unknown is what the unidecode tables carry for code points they cannot
// transliterate.
const unknown = "[?]"

// Normalize returns the search form of text. The same function is applied to
// stored content and to search queries so that matching ignores case and
// diacritics.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Lowercase first: some capitals have no mapping while their lowercase
	// form does, and Normalize must be idempotent.
	composed := norm.NFC.String(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(composed))
	for _, r := range composed {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case unicode.Is(unicode.Mn, r):
			// stray combining mark with no base to compose onto
		default:
			b.WriteString(transliterate(r))
		}
	}

	return strings.ToLower(b.String())
}

// transliterate maps a single non-ASCII rune to its closest ASCII spelling,
// or returns the rune unchanged when no mapping exists.
func transliterate(r rune) string {
	s := string(r)
	t := unidecode.Unidecode(s)
	if t == "" || strings.TrimSpace(t) == unknown {
		return s
	}
	return t
}
