// Package sanitize turns route and track names into filesystem-safe tokens.
package sanitize

import (
	"strings"
	"unicode"
)

var arrowReplacer = strings.NewReplacer(
	"→", "->",
	"⇄", "<->",
)

var separatorReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	`\`, "_",
)

// Filename converts a display name into a token that contains no path
// separators, no spaces and no non-printable runes. Runs of underscores are
// collapsed and leading/trailing underscores trimmed. An empty name yields
// an empty token.
func Filename(name string) string {
	name = arrowReplacer.Replace(name)
	name = separatorReplacer.Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if !unicode.IsPrint(r) {
			continue
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	return strings.Trim(b.String(), "_")
}
