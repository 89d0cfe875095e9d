// Package store persists station state as small JSON and text files. Every
// operation reads the whole file, optionally modifies it and writes it back,
// so concurrent writers from other processes resolve as last writer wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kaptinlin/jsonrepair"

	"station/internal/logging"
)

// Document is a JSON file holding one value of type T.
type Document[T any] struct {
	path     string
	empty    func() T
	validate func(T) error
	logger   logging.Logger

	mu sync.Mutex
}

// NewDocument binds a document to path. empty produces the value written when
// the file is missing or beyond repair; validate may be nil.
func NewDocument[T any](path string, empty func() T, validate func(T) error, logger logging.Logger) *Document[T] {
	return &Document[T]{
		path:     path,
		empty:    empty,
		validate: validate,
		logger:   logging.Component(logger, "store"),
	}
}

// Path returns the backing file.
func (d *Document[T]) Path() string {
	return d.path
}

// Read returns the current value.
func (d *Document[T]) Read() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

// Write replaces the stored value.
func (d *Document[T]) Write(value T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save(value)
}

// Update runs a read-modify-write cycle. Nothing is written when fn fails.
func (d *Document[T]) Update(fn func(T) (T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.load()
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return d.save(next)
}

func (d *Document[T]) load() (T, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		value := d.empty()
		if err := d.save(value); err != nil {
			return value, err
		}
		d.logger.Info("Created %s with an empty value", filepath.Base(d.path))
		return value, nil
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", filepath.Base(d.path), err)
	}

	value, err := d.decode(data)
	if err == nil {
		return value, nil
	}

	d.logger.Error("Resetting %s: %v", filepath.Base(d.path), err)
	value = d.empty()
	if saveErr := d.save(value); saveErr != nil {
		return value, saveErr
	}
	return value, nil
}

func (d *Document[T]) decode(data []byte) (T, error) {
	value := d.empty()
	err := json.Unmarshal(data, &value)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return value, fmt.Errorf("unparsable content: %w", err)
		}
		value = d.empty()
		if err := json.Unmarshal([]byte(repaired), &value); err != nil {
			return value, fmt.Errorf("unparsable content after repair: %w", err)
		}
		d.logger.Warn("Repaired malformed JSON in %s", filepath.Base(d.path))
	}
	if d.validate != nil {
		if err := d.validate(value); err != nil {
			return value, fmt.Errorf("invalid content: %w", err)
		}
	}
	return value, nil
}

func (d *Document[T]) save(value T) error {
	data, err := json.MarshalIndent(value, "", "\t")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(d.path), err)
	}
	return writeAtomic(d.path, data)
}

// writeAtomic replaces path via tmp+rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
