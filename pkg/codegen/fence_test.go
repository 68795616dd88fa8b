package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLanguageFor(t *testing.T) {
	tests := map[string]string{
		"app.py":            "python",
		"src/index.JS":      "javascript",
		"main.go":           "go",
		"lib.rs":            "rust",
		"native/impl.cpp":   "c++",
		"scripts/deploy.sh": "bash",
		"README.md":         "markdown",
		"Dockerfile":        "text",
		"config.yaml":       "text",
	}
	for path, want := range tests {
		assert.Equal(t, want, LanguageFor(path), path)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"language tag", "```python\nprint(1)\n```", "print(1)"},
		{"no language tag", "```\nx = 1\ny = 2\n```", "x = 1\ny = 2"},
		{"trailing prose dropped", "```go\npackage main\n```\nThis program does nothing.", "package main"},
		{"leading whitespace", "\n  ```js\nconsole.log(1)\n```\n", "console.log(1)"},
		{"no closing fence", "```python\nprint(1)\nprint(2)\n", "print(1)\nprint(2)"},
		{"single line", "```print(1)```", "print(1)"},
		{"lone opening line", "```python", ""},
		{"plain text untouched", "print(1)\n", "print(1)\n"},
		{"fence later is not stripped", "Here you go:\n```python\nprint(1)\n```", "Here you go:\n```python\nprint(1)\n```"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.in))
		})
	}
}

func TestExtractCodeIsIdempotent(t *testing.T) {
	pieces := []string{"```", "```python", "\n", "print(1)", " ", "x = {}", "\r\n", "`", "``"}
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(pieces), 0, 10).Draw(t, "parts")
		in := strings.Join(parts, "") + rapid.String().Draw(t, "tail")

		once := ExtractCode(in)
		if twice := ExtractCode(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	exact := strings.Repeat("a", PreviewLength)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("é", PreviewLength+5)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("é", PreviewLength)+"...", got)
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("hello"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest([]byte("hello")))
	assert.NotEqual(t, a, Digest([]byte("hello!")))
}
