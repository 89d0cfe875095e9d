package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TextFile is a plain text file read and written as a whole.
type TextFile struct {
	path string
	mu   sync.Mutex
}

func NewTextFile(path string) *TextFile {
	return &TextFile{path: path}
}

// Path returns the backing file.
func (f *TextFile) Path() string {
	return f.path
}

// Read returns the file content. A missing file is created empty.
func (f *TextFile) Read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Write replaces the content.
func (f *TextFile) Write(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAtomic(f.path, []byte(content))
}

// Append adds content to the end of the file.
func (f *TextFile) Append(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Update runs a read-modify-write cycle. Nothing is written when fn fails.
func (f *TextFile) Update(fn func(string) (string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load()
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return writeAtomic(f.path, []byte(next))
}

func (f *TextFile) load() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", writeAtomic(f.path, nil)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(f.path), err)
	}
	return string(data), nil
}
