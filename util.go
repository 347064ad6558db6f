package awsign

import (
	"strings"
)

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	default:
		return false
	}
}

// uriEncode percent-encodes every byte outside the RFC 3986 unreserved set.
// Slashes are kept as-is when path is true.
func uriEncode(s string, path bool) string {
	var n int
	for i := 0; i < len(s); i++ {
		if c := s[i]; !isUnreserved(c) && (!path || c != '/') {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (path && c == '/') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}

	return b.String()
}

// stripExcessSpaces trims v and collapses inner whitespace runs to a single
// space.
func stripExcessSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// canonicalHeaderValue joins all values of a header the way both signing
// variants expect them.
func canonicalHeaderValue(values []string) string {
	if len(values) == 1 {
		return stripExcessSpaces(values[0])
	}

	stripped := make([]string, len(values))
	for i, v := range values {
		stripped[i] = stripExcessSpaces(v)
	}

	return strings.Join(stripped, ",")
}
