// Package workspace confines file operations to the station's working
// directory.
package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrOutside   = errors.New("path must stay within the workspace")
	ErrNotFound  = errors.New("no object exists at the given path")
	ErrNotFile   = errors.New("the path does not lead to a file")
	ErrNotDir    = errors.New("the path does not lead to a directory")
	ErrBinary    = errors.New("the file is binary and cannot be read as text")
)

// Workspace resolves user supplied paths. Relative paths are taken from Base
// (the station directory); every resolved path must lie inside Root.
type Workspace struct {
	Base string
	Root string
}

// New returns a workspace with absolute, cleaned directories.
func New(base, root string) (Workspace, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return Workspace{}, fmt.Errorf("resolve base: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, fmt.Errorf("resolve root: %w", err)
	}
	return Workspace{Base: absBase, Root: absRoot}, nil
}

// Ensure creates the root directory when it is missing.
func (w Workspace) Ensure() error {
	return os.MkdirAll(w.Root, 0o755)
}

// Resolve turns raw into an absolute path inside Root.
func (w Workspace) Resolve(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyPath
	}
	target := trimmed
	if !filepath.IsAbs(target) {
		target = filepath.Join(w.Base, target)
	}
	target = filepath.Clean(target)
	if !Within(w.Root, target) {
		return "", ErrOutside
	}
	return target, nil
}

// Within reports whether target is base itself or lies below it.
func Within(base, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsRoot reports whether abs is the workspace root.
func (w Workspace) IsRoot(abs string) bool {
	return filepath.Clean(abs) == w.Root
}

// Display renders abs relative to Base with forward slashes.
func (w Workspace) Display(abs string) string {
	rel, err := filepath.Rel(w.Base, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// IsBinary reports whether data cannot be treated as text.
func IsBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data)
}

// ReadText returns the content of a text file.
func ReadText(abs string) (string, error) {
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFile
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	if IsBinary(data) {
		return "", ErrBinary
	}
	return string(data), nil
}

// ListDirectory renders the entries of a directory, subdirectories first.
func (w Workspace) ListDirectory(abs string) (string, error) {
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", ErrNotDir
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return entries[i].Name() < entries[j].Name()
	})

	display := w.Display(abs)
	if len(entries) == 0 {
		return fmt.Sprintf("Directory «%s» is empty.", display), nil
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			lines = append(lines, "[DIRECTORY] "+entry.Name())
		case entry.Type().IsRegular():
			lines = append(lines, "[FILE] "+entry.Name())
		default:
			lines = append(lines, "[OTHER] "+entry.Name())
		}
	}
	return fmt.Sprintf("Contents of directory «%s» → {\n%s\n}", display, strings.Join(lines, "\n")), nil
}
