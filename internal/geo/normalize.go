package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks folds accented letters to their base letter ("México" -> "Mexico").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeKey lower-cases s, folds accents, drops a leading article and
// collapses everything that is not a letter or digit to single spaces, so
// "The  Côte-d'Ivoire" and "cote d ivoire" compare equal.
func normalizeKey(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}

	key := strings.TrimSpace(b.String())
	if rest, ok := strings.CutPrefix(key, "the "); ok {
		key = rest
	}
	return key
}
