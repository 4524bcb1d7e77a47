package common

import "regexp"

// CompileFullMatch compiles a pattern that must match an entire string.
// Case-insensitive patterns get the (?i) flag prepended.
func CompileFullMatch(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	expr := "^(?:" + pattern + ")$"
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}
