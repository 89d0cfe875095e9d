package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"station/internal/diff"
	"station/internal/parser"
	"station/internal/store"
	"station/internal/workspace"
)

var errRootProtected = errors.New("the workspace root itself cannot be changed")

// stat resolves raw and requires an existing object.
func (d *Dispatcher) stat(raw string) (string, fs.FileInfo, error) {
	abs, err := d.world.Workspace.Resolve(raw)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: «%s»", workspace.ErrNotFound, d.world.Workspace.Display(abs))
	}
	if err != nil {
		return "", nil, err
	}
	return abs, info, nil
}

func (d *Dispatcher) statFile(raw string) (string, fs.FileInfo, error) {
	abs, info, err := d.stat(raw)
	if err != nil {
		return "", nil, err
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: «%s»", workspace.ErrNotFile, d.world.Workspace.Display(abs))
	}
	return abs, info, nil
}

func (d *Dispatcher) statDir(raw string) (string, error) {
	abs, info, err := d.stat(raw)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: «%s»", workspace.ErrNotDir, d.world.Workspace.Display(abs))
	}
	return abs, nil
}

// child resolves name inside an existing parent directory and requires it to
// be free.
func (d *Dispatcher) child(parent, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name cannot be empty")
	}
	if err := d.world.Workspace.Ensure(); err != nil {
		return "", err
	}
	dir, err := d.statDir(parent)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, name)
	if !workspace.Within(d.world.Workspace.Root, target) {
		return "", workspace.ErrOutside
	}
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("an object already exists at «%s»", d.world.Workspace.Display(target))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return target, nil
}

func (d *Dispatcher) createFile(_ context.Context, args []string) (string, error) {
	target, err := d.child(arg(args, 0), arg(args, 1))
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("File «%s» was created.", d.world.Workspace.Display(target)), nil
}

func (d *Dispatcher) createDirectory(_ context.Context, args []string) (string, error) {
	target, err := d.child(arg(args, 0), arg(args, 1))
	if err != nil {
		return "", err
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		return "", err
	}
	return fmt.Sprintf("Directory «%s» was created.", d.world.Workspace.Display(target)), nil
}

func (d *Dispatcher) getFileInfo(_ context.Context, args []string) (string, error) {
	abs, info, err := d.statFile(arg(args, 0))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File «%s» → size: %d bytes; modified: %s; permissions: %03o.",
		d.world.Workspace.Display(abs), info.Size(),
		info.ModTime().Format(store.TimestampLayout), info.Mode().Perm()), nil
}

func (d *Dispatcher) trackFile(_ context.Context, args []string) (string, error) {
	abs, _, err := d.statFile(arg(args, 0))
	if err != nil {
		return "", err
	}
	if _, err := workspace.ReadText(abs); err != nil {
		return "", err
	}
	rel := d.world.Workspace.Display(abs)
	if err := d.world.Stores.TrackedFiles.Add(rel); err != nil {
		if errors.Is(err, store.ErrAlreadyPresent) {
			return "", fmt.Errorf("file «%s» is already tracked", rel)
		}
		return "", err
	}
	return fmt.Sprintf("File «%s» was added to the tracked files.", rel), nil
}

func (d *Dispatcher) trackDirectory(_ context.Context, args []string) (string, error) {
	abs, err := d.statDir(arg(args, 0))
	if err != nil {
		return "", err
	}
	rel := d.world.Workspace.Display(abs)
	if err := d.world.Stores.TrackedDirs.Add(rel); err != nil {
		if errors.Is(err, store.ErrAlreadyPresent) {
			return "", fmt.Errorf("directory «%s» is already tracked", rel)
		}
		return "", err
	}
	return fmt.Sprintf("Directory «%s» was added to the tracked directories.", rel), nil
}

func (d *Dispatcher) forgetFile(_ context.Context, args []string) (string, error) {
	return d.forget(d.world.Stores.TrackedFiles, arg(args, 0), "File")
}

func (d *Dispatcher) forgetDirectory(_ context.Context, args []string) (string, error) {
	return d.forget(d.world.Stores.TrackedDirs, arg(args, 0), "Directory")
}

// forget works on paths that may no longer exist.
func (d *Dispatcher) forget(list *store.PathList, raw, kind string) (string, error) {
	abs, err := d.world.Workspace.Resolve(raw)
	if err != nil {
		return "", err
	}
	rel := d.world.Workspace.Display(abs)
	if err := list.Remove(rel); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%s «%s» is not tracked", strings.ToLower(kind), rel)
		}
		return "", err
	}
	return fmt.Sprintf("%s «%s» is no longer tracked.", kind, rel), nil
}

func (d *Dispatcher) delete(_ context.Context, args []string) (string, error) {
	abs, info, err := d.stat(arg(args, 0))
	if err != nil {
		return "", err
	}
	if d.world.Workspace.IsRoot(abs) {
		return "", errRootProtected
	}
	rel := d.world.Workspace.Display(abs)
	switch {
	case info.IsDir():
		if err := os.RemoveAll(abs); err != nil {
			return "", err
		}
		return fmt.Sprintf("Directory «%s» was deleted with all its contents.", rel), nil
	case info.Mode().IsRegular():
		if err := os.Remove(abs); err != nil {
			return "", err
		}
		return fmt.Sprintf("File «%s» was deleted.", rel), nil
	default:
		return "", fmt.Errorf("deleting objects of this kind is not supported: «%s»", rel)
	}
}

func (d *Dispatcher) move(_ context.Context, args []string) (string, error) {
	from, info, err := d.stat(arg(args, 0))
	if err != nil {
		return "", err
	}
	if d.world.Workspace.IsRoot(from) {
		return "", errRootProtected
	}
	to, err := d.world.Workspace.Resolve(arg(args, 1))
	if err != nil {
		return "", err
	}
	ws := d.world.Workspace
	if info.IsDir() && workspace.Within(from, to) {
		return "", errors.New("a directory cannot be moved into itself or its own subdirectory")
	}
	if target, err := os.Lstat(to); err == nil {
		if target.IsDir() {
			return "", fmt.Errorf("directory «%s» already exists at the destination, moving could overwrite it", ws.Display(to))
		}
		return "", fmt.Errorf("an object already exists at «%s», moving would overwrite it", ws.Display(to))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.Rename(from, to); err != nil {
		return "", err
	}
	return fmt.Sprintf("«%s» was moved to «%s».", ws.Display(from), ws.Display(to)), nil
}

func (d *Dispatcher) rename(_ context.Context, args []string) (string, error) {
	from, _, err := d.stat(arg(args, 0))
	if err != nil {
		return "", err
	}
	if d.world.Workspace.IsRoot(from) {
		return "", errRootProtected
	}
	name := strings.TrimSpace(arg(args, 1))
	switch {
	case name == "":
		return "", errors.New("the new name cannot be empty")
	case name == "." || name == "..":
		return "", fmt.Errorf("«%s» is not a valid name", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return "", errors.New("the new name cannot contain path separators")
	}
	to := filepath.Join(filepath.Dir(from), name)
	ws := d.world.Workspace
	if to != from {
		if _, err := os.Lstat(to); err == nil {
			return "", fmt.Errorf("an object named «%s» already exists", ws.Display(to))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	if err := os.Rename(from, to); err != nil {
		return "", err
	}
	return fmt.Sprintf("«%s» was renamed to «%s».", ws.Display(from), name), nil
}

// editFile applies fn to the text of a file and reports the line diff.
func (d *Dispatcher) editFile(raw string, fn func(string) (string, error)) (string, diff.Summary, error) {
	abs, info, err := d.statFile(raw)
	if err != nil {
		return "", diff.Summary{}, err
	}
	current, err := workspace.ReadText(abs)
	if err != nil {
		return "", diff.Summary{}, err
	}
	next, err := fn(current)
	if err != nil {
		return "", diff.Summary{}, err
	}
	if err := os.WriteFile(abs, []byte(next), info.Mode().Perm()); err != nil {
		return "", diff.Summary{}, err
	}
	return d.world.Workspace.Display(abs), diff.Summarize(current, next), nil
}

func (d *Dispatcher) addToFile(_ context.Context, args []string) (string, error) {
	text := parser.Unescape(arg(args, 1))
	rel, summary, err := d.editFile(arg(args, 0), func(current string) (string, error) {
		return current + text, nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Text was appended to file «%s» (%s).", rel, summary), nil
}

func (d *Dispatcher) replaceInFile(_ context.Context, args []string) (string, error) {
	old := parser.Unescape(arg(args, 1))
	replacement := parser.Unescape(arg(args, 2))
	if old == "" {
		return "", errNothingToEdit
	}
	rel, summary, err := d.editFile(arg(args, 0), func(current string) (string, error) {
		if !strings.Contains(current, old) {
			return "", errors.New("the given text was not found in the file, nothing changed")
		}
		return strings.ReplaceAll(current, old, replacement), nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Every occurrence of the given text in file «%s» was replaced (%s).", rel, summary), nil
}

func (d *Dispatcher) removeFromFile(_ context.Context, args []string) (string, error) {
	text := parser.Unescape(arg(args, 1))
	if text == "" {
		return "", errNothingToEdit
	}
	rel, summary, err := d.editFile(arg(args, 0), func(current string) (string, error) {
		if !strings.Contains(current, text) {
			return "", errors.New("the given text was not found in the file, nothing changed")
		}
		return strings.ReplaceAll(current, text, ""), nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Every occurrence of the given text was removed from file «%s» (%s).", rel, summary), nil
}

func (d *Dispatcher) rewriteFile(_ context.Context, args []string) (string, error) {
	text := parser.Unescape(arg(args, 1))
	rel, summary, err := d.editFile(arg(args, 0), func(string) (string, error) {
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File «%s» was rewritten (%s).", rel, summary), nil
}
