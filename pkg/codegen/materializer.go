// Package codegen turns file descriptions into files on disk using the text
// generation capability.
package codegen

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/logx"
)

// PreviewLength is the number of characters kept in FileResult.ContentPreview.
const PreviewLength = 200

// FileResult is the outcome of generating or writing one file.
//
//nolint:govet // JSON field order mirrors the event log
type FileResult struct {
	FilePath       string `json:"file_path"`
	Language       string `json:"language,omitempty"`
	Success        bool   `json:"success"`
	ContentPreview string `json:"content_preview,omitempty"`
	Digest         string `json:"digest,omitempty"`
	Bytes          int    `json:"bytes,omitempty"`
	Error          string `json:"error,omitempty"`
}

// FileSpec describes one file of a project structure.
type FileSpec struct {
	Path        string `json:"path"`
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
}

// Structure is the directory/file layout requested for a new project.
type Structure struct {
	Directories []string   `json:"directories"`
	Files       []FileSpec `json:"files"`
}

// StructureResult collects what SetupStructure created and what failed.
type StructureResult struct {
	CreatedDirectories []string `json:"created_directories"`
	CreatedFiles       []string `json:"created_files"`
	Errors             []string `json:"errors"`
}

// ParseStructure decodes the JSON object embedded in a model response.
func ParseStructure(text string) (Structure, error) {
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return Structure{}, fmt.Errorf("no JSON object in response")
	}
	var s Structure
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return Structure{}, fmt.Errorf("failed to parse project structure: %w", err)
	}
	return s, nil
}

// FileSink receives every FileResult.
type FileSink interface {
	RecordFile(ctx context.Context, result *FileResult)
}

// Materializer writes generated files below a root directory.
type Materializer struct {
	gen    llm.TextGenerator
	logger *logx.Logger
	root   string
	sinks  []FileSink
}

// NewMaterializer creates a Materializer. Relative paths resolve against root.
func NewMaterializer(gen llm.TextGenerator, root string, logger *logx.Logger, sinks ...FileSink) *Materializer {
	if logger == nil {
		logger = logx.NewLogger("codegen")
	}
	return &Materializer{gen: gen, logger: logger, root: root, sinks: sinks}
}

// SetRoot moves the materializer to a new project directory.
func (m *Materializer) SetRoot(root string) {
	m.root = root
}

// Root returns the directory relative paths resolve against.
func (m *Materializer) Root() string {
	return m.root
}

func (m *Materializer) resolve(path string) string {
	if filepath.IsAbs(path) || m.root == "" {
		return path
	}
	return filepath.Join(m.root, path)
}

// GenerateFile asks the generator for the content of path and writes it,
// overwriting any existing file. The language is inferred from the extension
// when empty. The written content has any surrounding fence removed, while
// ContentPreview is taken from the raw response. Failures are reported in the
// result.
func (m *Materializer) GenerateFile(ctx context.Context, path, description, language string) *FileResult {
	full := m.resolve(path)
	if language == "" {
		language = LanguageFor(full)
	}
	m.logger.Info("📝 Generating %s file: %s", language, full)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return m.finish(ctx, &FileResult{FilePath: full, Language: language, Error: err.Error()})
	}
	content, err := m.gen.GenerateCode(ctx, description, language)
	if err != nil {
		m.logger.Error("Error generating file %s: %v", full, err)
		return m.finish(ctx, &FileResult{FilePath: full, Language: language, Error: err.Error()})
	}
	res := m.write(full, ExtractCode(content))
	res.Language = language
	if res.Success {
		res.ContentPreview = Preview(content)
	}
	return m.finish(ctx, res)
}

// WriteFile writes content verbatim.
func (m *Materializer) WriteFile(ctx context.Context, path, content string) *FileResult {
	full := m.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return m.finish(ctx, &FileResult{FilePath: full, Error: err.Error()})
	}
	res := m.write(full, content)
	res.Language = LanguageFor(full)
	return m.finish(ctx, res)
}

func (m *Materializer) write(full, content string) *FileResult {
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return &FileResult{FilePath: full, Error: err.Error()}
	}
	return &FileResult{
		FilePath:       full,
		Success:        true,
		ContentPreview: Preview(content),
		Digest:         Digest([]byte(content)),
		Bytes:          len(content),
	}
}

func (m *Materializer) finish(ctx context.Context, res *FileResult) *FileResult {
	for _, s := range m.sinks {
		s.RecordFile(ctx, res)
	}
	return res
}

// SetupStructure creates the directories and generates the files of s, in
// order. It keeps going past individual failures and lists them in Errors.
func (m *Materializer) SetupStructure(ctx context.Context, s Structure) *StructureResult {
	result := &StructureResult{
		CreatedDirectories: []string{},
		CreatedFiles:       []string{},
		Errors:             []string{},
	}
	for _, dir := range s.Directories {
		full := m.resolve(dir)
		if err := os.MkdirAll(full, 0755); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error creating directory %s: %v", dir, err))
			continue
		}
		result.CreatedDirectories = append(result.CreatedDirectories, full)
	}
	for _, f := range s.Files {
		if f.Path == "" {
			result.Errors = append(result.Errors, "Error processing file: missing path")
			continue
		}
		res := m.GenerateFile(ctx, f.Path, f.Description, f.Language)
		if !res.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("Error creating file %s: %s", f.Path, res.Error))
			continue
		}
		result.CreatedFiles = append(result.CreatedFiles, res.FilePath)
	}
	return result
}

// Preview returns the first PreviewLength characters of content, with "..."
// appended when it was cut.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	n := 0
	for i := range content {
		if n == PreviewLength {
			return content[:i] + "..."
		}
		n++
	}
	return content
}

// Digest returns the hex BLAKE3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
