// Package slug derives URL-safe article identifiers and resolves them back
// to stored articles.
package slug

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxBaseLength bounds the title-derived part of a slug.
	MaxBaseLength = 50
	// HashLength is the width of the numeric URL suffix.
	HashLength = 8
)

// Generate builds "<cleaned-title>-<8 digit url hash>". An empty cleaned
// title yields "article-<hash>".
func Generate(title, url string) string {
	base := Clean(title)
	if base == "" {
		base = "article"
	}
	return base + "-" + URLHash(url)
}

// Clean lowercases, folds accents, drops characters other than [a-z0-9],
// whitespace, hyphens and underscores, turns each run of the latter three
// into a single hyphen and truncates to MaxBaseLength.
func Clean(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var sb strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = true
		}
	}

	s := sb.String()
	if len(s) > MaxBaseLength {
		s = strings.TrimRight(s[:MaxBaseLength], "-")
	}
	return s
}

// URLHash is a 31-multiplier rolling hash over the URL's UTF-16 code units,
// folded into 32 bits and rendered as 8 zero-padded digits.
func URLHash(url string) string {
	var h int32
	for _, r := range url {
		if r >= 0x10000 {
			hi, lo := utf16Pair(r)
			h = h*31 + int32(hi)
			h = h*31 + int32(lo)
			continue
		}
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return fmt.Sprintf("%0*d", HashLength, v%100000000)
}

func utf16Pair(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r>>10)&0x3FF, 0xDC00 + r&0x3FF
}

// Valid reports whether s only contains [a-z0-9-] and is not empty.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return false
		}
	}
	return true
}
