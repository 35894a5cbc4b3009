// Package validate holds the field rules applied before any mutation reaches
// the database.
package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Length bounds used across forms.
const (
	MinProductNameLen = 3
	MinCommentLen     = 10
	MaxCommentLen     = 500
	MinPasswordLen    = 8
)

// Slug reports whether the value is a valid URL key.
func Slug(s string) bool {
	return slugPattern.MatchString(s)
}

// HexColor reports whether the value is a 3- or 6-digit hex color.
func HexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// Email reports whether the value looks like an email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Rating reports whether the value is an integer rating from 1 to 5.
func Rating(r int) bool {
	return r >= 1 && r <= 5
}

// Comment reports whether the review body length is within bounds. Bounds
// are counted in characters, not bytes.
func Comment(s string) bool {
	length := utf8.RuneCountInString(strings.TrimSpace(s))
	return length >= MinCommentLen && length <= MaxCommentLen
}

// ProductName reports whether the product name is long enough.
func ProductName(s string) bool {
	return len(strings.TrimSpace(s)) >= MinProductNameLen
}

// PriceCents parses a decimal currency string into integer minor-units.
// "49.90" becomes 4990; at most two fraction digits are accepted. Prices
// must be strictly positive, so zero and signed amounts are rejected.
func PriceCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, false
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, errWhole := strconv.ParseInt(whole, 10, 64)
	if errWhole != nil || units > (math.MaxInt64-99)/100 {
		return 0, false
	}
	cents := units * 100
	if hasFrac {
		if frac == "" || len(frac) > 2 {
			return 0, false
		}
		if len(frac) == 1 {
			frac += "0"
		}
		fracCents, errFrac := strconv.ParseUint(frac, 10, 8)
		if errFrac != nil {
			return 0, false
		}
		cents += int64(fracCents)
	}
	if cents <= 0 {
		return 0, false
	}
	return cents, true
}
