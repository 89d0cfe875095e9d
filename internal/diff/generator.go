// Package diff summarises text edits made to workspace files.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summary counts the lines an edit added and deleted.
type Summary struct {
	Added   int
	Deleted int
}

func (s Summary) String() string {
	return fmt.Sprintf("+%d/-%d lines", s.Added, s.Deleted)
}

// Unchanged reports whether the edit was a no-op.
func (s Summary) Unchanged() bool {
	return s.Added == 0 && s.Deleted == 0
}

// Summarize diffs old and new line by line.
func Summarize(oldContent, newContent string) Summary {
	if oldContent == newContent {
		return Summary{}
	}
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(oldChars, newChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var summary Summary
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			summary.Added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			summary.Deleted += countLines(d.Text)
		}
	}
	return summary
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
