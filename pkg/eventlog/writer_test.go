package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), StreamFileName)

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if writer.Path() != path {
		t.Errorf("Expected path %s, got %s", path, writer.Path())
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestWriteAndReadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	writer, err := NewWriter(path)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []*Entry{
		{Kind: KindSection, Timestamp: ts, Title: "Project Planning"},
		{Kind: KindCommand, Timestamp: ts, Command: "npm install", Output: "added 12 packages", Success: true},
		{Kind: KindFile, Timestamp: ts, FilePath: "app.py", Preview: "from flask import Flask"},
	}
	for _, e := range entries {
		if err := writer.WriteEntry(e); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	got, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	if got[0].Title != "Project Planning" || got[0].Kind != KindSection {
		t.Errorf("Unexpected first entry: %+v", got[0])
	}
	if !got[1].Success || got[1].Command != "npm install" {
		t.Errorf("Unexpected command entry: %+v", got[1])
	}
	if !got[2].Timestamp.Equal(ts) {
		t.Errorf("Timestamp not preserved: %v", got[2].Timestamp)
	}
}

func TestWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	for i := 0; i < 2; i++ {
		writer, err := NewWriter(path)
		if err != nil {
			t.Fatalf("Failed to create writer: %v", err)
		}
		if err := writer.WriteEntry(&Entry{Kind: KindText, Content: "run"}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
		writer.Close()
	}

	got, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 entries after reopening, got %d", len(got))
	}
}

func TestWriteAfterClose(t *testing.T) {
	writer, err := NewWriter(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
	if err := writer.WriteEntry(&Entry{Kind: KindText}); err == nil {
		t.Error("Expected error writing to a closed writer")
	}
}

func TestReadEntriesErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadEntries(filepath.Join(dir, "missing.jsonl")); err == nil {
		t.Error("Expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadEntries(empty)
	if err != nil || len(got) != 0 {
		t.Errorf("Expected no entries and no error, got %d, %v", len(got), err)
	}

	corrupt := filepath.Join(dir, "corrupt.jsonl")
	if err := os.WriteFile(corrupt, []byte("{\"type\":\"text\"}\n\n{broken\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = ReadEntries(corrupt)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Expected parse error on line 3, got %v", err)
	}
}
