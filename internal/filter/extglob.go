// internal/filter/extglob.go
package filter

import (
	"fmt"
	"strings"
)

// expandExtglob rewrites @(a|b) groups into the brace alternation doublestar
// understands. The repeating and negated forms +(), *(), ?() and !() have no
// brace equivalent and are rejected. A leading "!" marks an exclusion and
// must be stripped by the caller.
func expandExtglob(pattern string) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern))

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			b.WriteByte(c)
			b.WriteByte(pattern[i+1])
			i++
			continue

		case strings.IndexByte("@+*?!", c) >= 0 && i+1 < len(pattern) && pattern[i+1] == '(':
			end := closingParen(pattern, i+1)
			if end < 0 {
				return "", fmt.Errorf("unclosed group in %q", pattern)
			}
			if c != '@' {
				return "", fmt.Errorf("%c(...) groups are not supported", c)
			}

			alts := splitAlternatives(pattern[i+2 : end])
			b.WriteByte('{')
			for n, alt := range alts {
				expanded, err := expandExtglob(alt)
				if err != nil {
					return "", err
				}
				if n > 0 {
					b.WriteByte(',')
				}
				b.WriteString(escapeCommas(expanded))
			}
			b.WriteByte('}')
			i = end
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// closingParen returns the index of the paren matching the one at open, or -1
func closingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitAlternatives splits on "|" outside nested groups
func splitAlternatives(s string) []string {
	var alts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		case '|':
			if depth == 0 {
				alts = append(alts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(alts, s[start:])
}

// escapeCommas escapes commas outside braces so they stay literal inside the
// generated alternation
func escapeCommas(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
