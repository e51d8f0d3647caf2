package publish

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const slugFallback = "source"

// Slug folds a warehouse name into a filesystem-safe file stem: NFKD
// fold, keep ASCII, collapse non-alphanumeric runs to dashes, lower.
// Names with no ASCII left fall back to "source".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(name) {
		if r > unicode.MaxASCII {
			continue
		}
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		case 'A' <= r && r <= 'Z':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}

	if b.Len() == 0 {
		return slugFallback
	}
	return b.String()
}
