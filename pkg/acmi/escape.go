package acmi

import "strings"

// appendEscaped writes s with the ACMI reserved characters escaped.
// Newlines become a backslash followed by the newline itself, which
// ACMI readers treat as a line continuation.
func appendEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', ',', '|', '\n':
			dst = append(dst, '\\', c)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// appendEscapedName is appendEscaped for property names, which must also
// escape the name/value separator.
func appendEscapedName(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', ',', '|', '\n', '=':
			dst = append(dst, '\\', c)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// Escape returns s with commas, pipes, backslashes and newlines escaped.
func Escape(s string) string {
	return string(appendEscaped(make([]byte, 0, len(s)), s))
}

// Unescape reverses Escape. A trailing lone backslash is kept.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitEscaped splits s on sep, ignoring separators preceded by a backslash.
// The parts are returned still escaped.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// continues reports whether line ends in an unescaped backslash, meaning the
// logical line carries on after the newline.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
