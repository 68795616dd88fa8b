package codegen

import (
	"path/filepath"
	"strings"
)

const fence = "```"

var extensionLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".html": "html",
	".css":  "css",
	".java": "java",
	".c":    "c",
	".cpp":  "c++",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".sh":   "bash",
	".md":   "markdown",
}

// DefaultLanguage is used for extensions not in the table.
const DefaultLanguage = "text"

// LanguageFor infers the generation language from the file extension.
func LanguageFor(path string) string {
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return DefaultLanguage
}

// ExtractCode strips a Markdown code fence wrapped around generated text.
//
// Only text that begins with a fence is touched: the opening line (with its
// optional language tag) is dropped, and everything from the next fence on is
// discarded. A missing closing fence keeps the rest of the text. Text that does
// not begin with a fence is returned unchanged, so ExtractCode is idempotent.
func ExtractCode(text string) string {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, fence) {
		return text
	}
	body := trimmed[len(fence):]

	nl := strings.IndexByte(body, '\n')
	if nl >= 0 {
		body = body[nl+1:]
	}
	end := strings.Index(body, fence)
	switch {
	case end >= 0:
		body = body[:end]
	case nl < 0:
		// a lone opening line such as "```python"
		return ""
	}
	return strings.Trim(body, "\r\n")
}
