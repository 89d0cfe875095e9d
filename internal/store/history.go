package store

import (
	"fmt"
	"time"

	"station/internal/logging"
)

// HistoryEntry is one finished cycle: the model response and the parsing
// feedback it produced.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// History keeps the most recent turns.
type History struct {
	doc   *Document[[]HistoryEntry]
	turns int
	now   func() time.Time
}

func NewHistory(path string, turns int, logger logging.Logger, now func() time.Time) *History {
	return &History{
		doc:   NewDocument(path, emptySlice[HistoryEntry], validateHistory, logger),
		turns: turns,
		now:   orNow(now),
	}
}

func validateHistory(entries []HistoryEntry) error {
	for i, e := range entries {
		if e.Timestamp == "" {
			return fmt.Errorf("entry %d has no timestamp", i)
		}
	}
	return nil
}

func (h *History) Entries() ([]HistoryEntry, error) {
	return h.doc.Read()
}

// Append records a turn and drops the oldest ones beyond the configured limit.
func (h *History) Append(content string) error {
	return h.doc.Update(func(entries []HistoryEntry) ([]HistoryEntry, error) {
		entries = append(entries, HistoryEntry{
			Timestamp: h.now().Format(TimestampLayout),
			Content:   content,
		})
		if h.turns > 0 && len(entries) > h.turns {
			entries = entries[len(entries)-h.turns:]
		}
		return entries, nil
	})
}

func (h *History) Clear() error {
	return h.doc.Write([]HistoryEntry{})
}
