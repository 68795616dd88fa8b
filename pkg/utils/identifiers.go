package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	nonNameChars = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeProjectName turns a generated project name into a directory-safe slug:
// characters other than word chars, whitespace and '-' are dropped, whitespace
// runs become '-', and the result is lower-cased. Returns "" when nothing is left.
func SanitizeProjectName(name string) string {
	clean := strings.TrimSpace(nonNameChars.ReplaceAllString(name, ""))
	return strings.ToLower(whitespaceRe.ReplaceAllString(clean, "-"))
}

// FeatureBranchName derives the per-task branch: "feature/" + lower-cased name with spaces as hyphens.
func FeatureBranchName(taskName string) string {
	return "feature/" + strings.ReplaceAll(strings.ToLower(taskName), " ", "-")
}

// TitleFromSlug turns "todo-api" into "Todo Api".
func TitleFromSlug(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Truncate shortens s to at most n bytes, backing off to a rune boundary, and
// appends "..." when it was longer.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
