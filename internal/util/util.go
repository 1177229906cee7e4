// Package util provides small helpers shared by the host packages.
package util

import (
	"strings"
	"time"
	"unicode"
)

const maxNameLength = 64

// SafeFileName turns s into a name usable on every filesystem: letters,
// digits, '-' and '_' are kept, runs of anything else collapse to one '_'.
// An empty result becomes "untitled".
func SafeFileName(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := b.String()
	if len(out) > maxNameLength {
		out = strings.TrimRight(out[:maxNameLength], "_")
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// RecordingName builds the base name of a recording started at t.
func RecordingName(title string, t time.Time) string {
	return t.UTC().Format("2006-01-02_15-04-05") + "_" + SafeFileName(title)
}
