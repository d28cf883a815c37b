package util

import (
	"fmt"
	"regexp"
	"strings"
)

// CompilePatterns compiles a comma-separated list into an ordered sequence
// of case-insensitive patterns. An empty string yields an empty (nil)
// slice. Patterns are matched by search semantics (regexp.MatchString is
// already unanchored), so substrings match.
func CompilePatterns(csv string) ([]*regexp.Regexp, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}

	var compiled []*regexp.Regexp
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", part, err)
		}
		compiled = append(compiled, re)
	}

	return compiled, nil
}

// MatchesAny reports whether name matches at least one pattern. An empty
// pattern list never matches.
func MatchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// regexMetacharacters lists the characters whose presence marks a
// namespace token as a regex pattern rather than an exact name.
const regexMetacharacters = `.*+?^${}()|[]\`

// IsRegexPattern reports whether s contains any regex metacharacter.
func IsRegexPattern(s string) bool {
	return strings.ContainsAny(s, regexMetacharacters)
}
