package llm

import "strings"

// ExtractJSON returns the substring from the first '{' to the last '}' of text.
//
// This is plain bracket scanning, not a JSON boundary parser: it is only correct
// when the payload is a single object and no unbalanced literal braces appear
// outside it (prose such as "use {name}" before the object breaks it). Callers
// treat a failed json.Unmarshal of the result as "no structured payload".
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
