package store

import (
	"errors"
	"fmt"

	"station/internal/logging"
)

// ErrAlreadyPresent reports that a path is already in the list.
var ErrAlreadyPresent = errors.New("already present")

var errUnchanged = errors.New("unchanged")

// PathList is an ordered set of workspace paths, used for tracked files and
// tracked directories.
type PathList struct {
	doc *Document[[]string]
}

func NewPathList(path string, logger logging.Logger) *PathList {
	return &PathList{doc: NewDocument(path, emptySlice[string], validatePaths, logger)}
}

func validatePaths(paths []string) error {
	for i, p := range paths {
		if p == "" {
			return fmt.Errorf("path %d is empty", i)
		}
	}
	return nil
}

func (l *PathList) Paths() ([]string, error) {
	return l.doc.Read()
}

func (l *PathList) Contains(path string) (bool, error) {
	paths, err := l.doc.Read()
	if err != nil {
		return false, err
	}
	for _, p := range paths {
		if p == path {
			return true, nil
		}
	}
	return false, nil
}

func (l *PathList) Add(path string) error {
	return l.doc.Update(func(paths []string) ([]string, error) {
		for _, p := range paths {
			if p == path {
				return nil, ErrAlreadyPresent
			}
		}
		return append(paths, path), nil
	})
}

func (l *PathList) Remove(path string) error {
	return l.doc.Update(func(paths []string) ([]string, error) {
		kept := paths[:0:0]
		for _, p := range paths {
			if p != path {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(paths) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
}

// Retain keeps only the paths keep accepts and reports the dropped ones.
func (l *PathList) Retain(keep func(string) bool) ([]string, error) {
	var dropped []string
	err := l.doc.Update(func(paths []string) ([]string, error) {
		kept := paths[:0:0]
		for _, p := range paths {
			if keep(p) {
				kept = append(kept, p)
			} else {
				dropped = append(dropped, p)
			}
		}
		if len(dropped) == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if errors.Is(err, errUnchanged) {
		err = nil
	}
	return dropped, err
}
