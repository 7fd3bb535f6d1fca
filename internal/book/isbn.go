package book

import (
	"fmt"
	"strings"
)

// NormalizeISBN strips separators (hyphens, spaces, dots) from an ISBN
// and validates the bare form: 13 digits, or 10 characters where the
// last may be the X check digit. Checksum validation is deliberately not
// performed; stores themselves are the source of truth for valid codes.
func NormalizeISBN(code string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(code) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ' || r == '.':
			// separator, drop
		default:
			return "", fmt.Errorf("invalid character %q in ISBN %q", r, code)
		}
	}

	normalized := b.String()
	switch len(normalized) {
	case 13:
		if strings.ContainsRune(normalized, 'X') {
			return "", fmt.Errorf("ISBN-13 %q must be all digits", code)
		}
	case 10:
		if strings.ContainsRune(normalized[:9], 'X') {
			return "", fmt.Errorf("ISBN-10 %q may only use X as check digit", code)
		}
	case 0:
		return "", fmt.Errorf("empty ISBN")
	default:
		return "", fmt.Errorf("ISBN %q must have 10 or 13 digits, got %d", code, len(normalized))
	}

	return normalized, nil
}

// LooksLikeISBN reports whether a scraped string normalizes to a valid
// 10 or 13 digit ISBN form. Used by adapters to sanity-check values
// pulled out of product URLs.
func LooksLikeISBN(code string) bool {
	_, err := NormalizeISBN(code)
	return err == nil
}
