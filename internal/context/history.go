package context

import (
	"fmt"
	"strings"

	"station/internal/store"
)

// RenderHistory numbers the entries oldest first. A lone entry is not
// numbered.
func RenderHistory(entries []store.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		if len(entries) == 1 {
			out[i] = fmt.Sprintf("[%s] → {\n%s\n}", e.Timestamp, e.Content)
			continue
		}
		out[i] = fmt.Sprintf("%d. [%s] → {\n%s\n}", i+1, e.Timestamp, e.Content)
	}
	return out
}

// WindowHistory keeps the newest records whose combined size fits budget.
// Walking from the newest, it stops at the first record that does not fit.
func WindowHistory(records []string, budget int, count func(string) int) []string {
	remaining := budget
	start := len(records)
	for i := len(records) - 1; i >= 0; i-- {
		need := count(records[i])
		if need > remaining {
			break
		}
		remaining -= need
		start = i
	}
	return records[start:]
}

func (a *Assembler) history() (string, error) {
	entries, err := a.sources.Stores.History.Entries()
	if err != nil {
		return "", err
	}
	window := WindowHistory(RenderHistory(entries), a.budgets.History, a.oracle.Count)
	return strings.Join(window, "\n\n"), nil
}
