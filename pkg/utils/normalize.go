// Package utils provides channel name helpers shared by the parser and the display layer.
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LogoExtension is appended to aliases to build picon file names.
const LogoExtension = ".png"

// CleanChannelName derives the alias used for logo matching. Diacritics are
// folded to their base letter, the result is lower-cased and every character
// that is not an ASCII letter, digit or '.' is dropped.
func CleanChannelName(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), strings.TrimSpace(name))
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		}
	}

	return b.String()
}

// LogoFileName returns the primary picon file name for a channel title.
func LogoFileName(title string) string {
	return CleanChannelName(title) + LogoExtension
}

// PiconCandidates lists the file names a display layer should try for a
// channel logo, most specific first and without duplicates.
func PiconCandidates(title string) []string {
	candidates := []string{
		LogoFileName(title),
		strings.ReplaceAll(title, " ", "_") + LogoExtension,
		strings.ToLower(strings.ReplaceAll(title, " ", "")) + LogoExtension,
	}

	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == LogoExtension || seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}

	return result
}
