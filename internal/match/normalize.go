package match

import (
	"strings"
	"unicode"
)

// LocalName returns the part of an attribute URI after the last '#' or '/'.
// Non-URI input is returned unchanged.
func LocalName(uri string) string {
	uri = strings.TrimRight(uri, "/#")
	if i := strings.LastIndexAny(uri, "#/"); i >= 0 {
		return uri[i+1:]
	}

	return uri
}

// NormalizeIdent folds case and drops separators so that "dc:Title",
// "dc_title" and "dcTitle" compare equal.
func NormalizeIdent(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if isSeparator(r) {
			continue
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// TokenizeIdent splits an identifier into lowercase words on separators and
// camel-case boundaries ("recordTitle" -> ["record", "title"]).
func TokenizeIdent(s string) []string {
	var (
		tokens  []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		current = append(current, r)
	}

	flush()

	return tokens
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', ' ', '.', ':':
		return true
	default:
		return false
	}
}
