package utils

import "strings"

// NormalizeSymbol canonicalizes a security code across statement layouts:
// uppercase, trimmed, star markers removed.
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), "*", "")
}
