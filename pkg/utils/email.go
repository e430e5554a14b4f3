package utils

import "strings"

// NormalizeEmail lower-cases and trims an address. Every index key goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasSuffix reports whether a normalized email ends with the institutional suffix (e.g. ".edu").
func HasSuffix(email, suffix string) bool {
	return suffix != "" && strings.HasSuffix(email, strings.ToLower(suffix))
}

// AliasMarker returns the "+tag@" marker for an alias tag, or "" when no tag is configured.
func AliasMarker(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	return "+" + tag + "@"
}

// HasAlias reports whether email carries the alias marker after a non-empty local part.
func HasAlias(email, tag string) bool {
	marker := AliasMarker(tag)
	return marker != "" && strings.Index(email, marker) > 0
}

// StripAlias rewrites "user+tag@domain" to "user@domain". Other addresses are returned unchanged.
func StripAlias(email, tag string) string {
	marker := AliasMarker(tag)
	if marker == "" {
		return email
	}
	return strings.Replace(email, marker, "@", 1)
}
