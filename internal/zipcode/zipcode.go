// Package zipcode normalizes claimed and property ZIP codes to five digits.
package zipcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentinel marks a row with no usable ZIP. It is never sent to the rate API.
const Sentinel = "00000"

// Parse interprets a raw ZIP cell. It accepts plain integers, float exports
// such as "30301.0" and ZIP+4 such as "30301-1234". More than five digits
// keeps the first five, fewer are zero padded. Blank, non-numeric and
// all-zero values report false.
func Parse(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	digits := s[:end]
	if digits == "" {
		return "", false
	}
	if rest := s[end:]; rest != "" && !validSuffix(rest) {
		return "", false
	}

	// integer round trip drops leading zeros the way a numeric column does
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n == 0 {
		return "", false
	}
	canonical := strconv.FormatUint(n, 10)
	if len(canonical) > 5 {
		return canonical[:5], true
	}
	return fmt.Sprintf("%05d", n), true
}

// validSuffix allows a float fraction (".0") or a ZIP+4 extension ("-1234").
func validSuffix(rest string) bool {
	switch rest[0] {
	case '.':
		return strings.Trim(rest[1:], "0123456789") == ""
	case '-':
		ext := rest[1:]
		return ext != "" && strings.Trim(ext, "0123456789") == ""
	}
	return false
}

// Normalize returns the canonical five-digit ZIP for a day row: the claimed
// ZIP when it parses, otherwise the property ZIP, otherwise Sentinel.
// Normalize(Normalize(x, p), p) == Normalize(x, p).
func Normalize(claimed, propertyZip string) string {
	if z, ok := Parse(claimed); ok {
		return z
	}
	if z, ok := Parse(propertyZip); ok {
		return z
	}
	return Sentinel
}

// IsSentinel reports whether z is the missing ZIP marker.
func IsSentinel(z string) bool {
	return z == Sentinel
}
