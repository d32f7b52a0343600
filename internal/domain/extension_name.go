package domain

import (
	"regexp"
	"strings"
)

const (
	MaxExtensionNameLength = 20
	MaxCustomExtensions    = 200
)

// DefaultFixedExtensions is the seed set of the fixed registry, in seed order.
var DefaultFixedExtensions = []string{"bat", "cmd", "com", "cpl", "exe", "scr", "js"}

var extensionNamePattern = regexp.MustCompile(`^[a-z0-9]+$`)

// NormalizeExtensionName trims surrounding whitespace and lowercases the name.
func NormalizeExtensionName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// HasExtensionCharset reports whether name consists only of [a-z0-9].
// It does not check the length.
func HasExtensionCharset(name string) bool {
	return extensionNamePattern.MatchString(name)
}

// IsValidExtensionName reports whether an already normalized name may be stored
// in either registry.
func IsValidExtensionName(name string) bool {
	if name == "" || len(name) > MaxExtensionNameLength {
		return false
	}
	return HasExtensionCharset(name)
}
