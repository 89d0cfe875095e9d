package context

import (
	"fmt"
	"strings"

	"station/internal/store"
	"station/internal/workspace"
)

const (
	trackedFilesHeader = "=== Currently tracked files ==="
	trackedDirsHeader  = "=== Currently tracked directories ==="
)

// tracking renders the tracked files and directories. Entries that can no
// longer be rendered are dropped from their list.
func (a *Assembler) tracking() (string, error) {
	ws := a.sources.Workspace
	files, err := a.collect(a.sources.Stores.TrackedFiles, "file", func(abs string) (string, error) {
		text, err := workspace.ReadText(abs)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Content of file «%s» → {\n%s\n}", ws.Display(abs), text), nil
	})
	if err != nil {
		return "", err
	}
	dirs, err := a.collect(a.sources.Stores.TrackedDirs, "directory", ws.ListDirectory)
	if err != nil {
		return "", err
	}

	var parts []string
	if len(files) > 0 {
		parts = append(parts, trackedFilesHeader+"\n\n"+strings.Join(files, "\n\n"))
	}
	if len(dirs) > 0 {
		parts = append(parts, trackedDirsHeader+"\n\n"+strings.Join(dirs, "\n\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (a *Assembler) collect(list *store.PathList, kind string, render func(abs string) (string, error)) ([]string, error) {
	var out []string
	_, err := list.Retain(func(p string) bool {
		abs, err := a.sources.Workspace.Resolve(p)
		if err == nil {
			var body string
			if body, err = render(abs); err == nil {
				out = append(out, body)
				return true
			}
		}
		a.logger.Warn("stopped tracking %s «%s»: %v", kind, p, err)
		return false
	})
	return out, err
}
