package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CollapseSpaces trims s and replaces every run of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CapitalizeFirst upper-cases the first letter of s and lower-cases the rest.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// NormalizeTags splits a whitespace-delimited tag string, trims and lower-cases
// every tag and drops empty ones. Order is preserved.
func NormalizeTags(raw string) []string {
	fields := strings.Fields(raw)
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.ToLower(strings.TrimSpace(f))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
