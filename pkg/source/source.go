package source

import (
	"path/filepath"
	"strings"
)

// SourceFile represents a source file with its content and metadata.
type SourceFile struct {
	Name    string   // Display name (e.g., "fib.b", "<stdin>")
	Path    string   // Full file path (empty for stdin)
	Content string   // The source code content
	lines   []string // Cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewStdinSource creates a source file for stdin input.
func NewStdinSource(content string) *SourceFile {
	return &SourceFile{
		Name:    "<stdin>",
		Path:    "",
		Content: content,
	}
}

// FromFile creates a SourceFile from a file path and content.
func FromFile(filePath, content string) *SourceFile {
	name := filepath.Base(filePath)
	return NewSourceFile(name, filePath, content)
}

// Lines returns the source split into lines (cached).
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name).
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}

// IsFile returns true if this represents an actual file (has a path).
func (sf *SourceFile) IsFile() bool {
	return sf.Path != ""
}
