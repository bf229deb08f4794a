// Package transform implements the pure mapping functions from spec §4.6:
// sanitization, priority/duration/date/boolean/contact mapping, hierarchy
// and predecessor reconstruction, assignment polymorphism, and custom field
// discovery. None of these functions perform I/O.
package transform

import (
	"regexp"
	"strings"
	"unicode"
)

var illegalNameChars = regexp.MustCompile(`[/\\:*?"<>|]`)
var repeatedDashes = regexp.MustCompile(`-+`)

const maxNameLength = 100

// SanitizeName implements spec §4.6.1: replace illegal filesystem-unsafe
// characters with "-", collapse runs of "-", trim, and cap length.
func SanitizeName(name string) string {
	s := illegalNameChars.ReplaceAllString(name, "-")
	s = repeatedDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, " -")
	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], " -") + "..."
	}
	return s
}

// ProjectPrefix implements spec §4.6.2: derive a 3-4 uppercase-letter
// prefix from a project name, used for auto-number ID columns.
func ProjectPrefix(projectName string) string {
	words := strings.Fields(projectName)
	if len(words) == 0 {
		return "PRJ"
	}

	var initials []rune
	for _, w := range words {
		r := firstLetter(w)
		if r != 0 {
			initials = append(initials, unicode.ToUpper(r))
		}
	}

	if len(initials) >= 3 {
		n := len(initials)
		if n > 4 {
			n = 4
		}
		return string(initials[:n])
	}

	// Fewer than 3 initials: pad by prefixing initials and appending
	// letters from the first word until we reach 3-4 characters.
	first := firstAlpha(words[0])
	prefix := string(initials)
	for _, r := range first {
		if len(prefix) >= 4 {
			break
		}
		upper := unicode.ToUpper(r)
		if strings.ContainsRune(prefix, upper) && len(prefix) >= 3 {
			continue
		}
		prefix += string(upper)
	}

	if prefix == "" {
		return "PRJ"
	}
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return prefix
}

func firstLetter(word string) rune {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return r
		}
	}
	return 0
}

func firstAlpha(word string) []rune {
	var out []rune
	for _, r := range word {
		if unicode.IsLetter(r) {
			out = append(out, r)
		}
	}
	return out
}
