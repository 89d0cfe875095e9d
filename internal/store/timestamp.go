package store

import (
	"time"

	"station/internal/logging"
)

// Timestamp persists a single instant as Unix milliseconds. Zero means unset.
type Timestamp struct {
	doc *Document[int64]
}

func NewTimestamp(path string, logger logging.Logger) *Timestamp {
	return &Timestamp{doc: NewDocument(path, func() int64 { return 0 }, nil, logger)}
}

// Get returns the stored instant, or the zero time when unset.
func (t *Timestamp) Get() (time.Time, error) {
	ms, err := t.doc.Read()
	if err != nil || ms <= 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (t *Timestamp) Set(at time.Time) error {
	if at.IsZero() {
		return t.Clear()
	}
	return t.doc.Write(at.UnixMilli())
}

func (t *Timestamp) Clear() error {
	return t.doc.Write(0)
}
