package utils

import (
	"unicode"
	"unicode/utf8"
)

// ExportedMemberName maps a binding member name to its exported Go spelling.
// Example: "firstName" -> "FirstName". Returns "" when no fallback exists.
func ExportedMemberName(member string) string {
	if member == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(member)
	if r == utf8.RuneError && size <= 1 {
		return ""
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return ""
	}
	return string(upper) + member[size:]
}

// LowerFirst lowers the first rune of s ("FirstName" -> "firstName").
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
