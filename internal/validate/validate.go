package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

var (
	// US ZIP: 5 digits or ZIP+4
	reZIP      = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`)
	// printable text, no control characters
	reQ        = regexp.MustCompile(`^\P{Cc}{0,50}$`)
	reCategory = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,39}$`)
	rePhone    = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)
)

const (
	MaxQ   = 50
	MaxQty = 999
)

// Q validates raw search text. Empty is allowed (it clears the search);
// longer input is cut to MaxQ runes. Control characters and invalid UTF-8
// are rejected.
func Q(s string) (string, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > MaxQ {
		s = string(r[:MaxQ])
	}
	return s, reQ.MatchString(s)
}

// ID validates a product id from a path segment.
func ID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Qty checks a requested line quantity. Zero and negatives are valid: they
// remove the line.
func Qty(n int) bool { return n <= MaxQty && n >= -MaxQty }

// Category validates a category slug as the catalog source spells them.
func Category(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reCategory.MatchString(s)
}

func Sort(s string) (domain.SortMode, bool) {
	return domain.ParseSort(strings.TrimSpace(s))
}

// Price accepts a finite non-negative amount.
func Price(v float64) bool { return v >= 0 && v < 1e9 }

// Token validates a toast token.
func Token(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, err := uuid.Parse(s); err != nil {
		return "", false
	}
	return s, true
}

func Zip(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reZIP.MatchString(s)
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}
