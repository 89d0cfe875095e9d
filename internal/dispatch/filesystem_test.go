package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station/internal/parser"
)

func TestCreateFileAndDirectory(t *testing.T) {
	h := newHarness(t, nil)

	fb := h.one(parser.CreateDirectory, "workspace", "notes")
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	assert.Contains(t, fb.Message, "«workspace/notes»")

	fb = h.one(parser.CreateFile, "workspace/notes", "todo.md")
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	info, err := os.Stat(filepath.Join(h.ws.Root, "notes", "todo.md"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	assert.Equal(t, OutcomeFailure, h.one(parser.CreateFile, "workspace/notes", "todo.md").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.CreateDirectory, "workspace", "notes").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.CreateFile, "workspace/missing", "a.txt").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.CreateFile, "workspace/notes/todo.md", "a.txt").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.CreateFile, "workspace", " ").Outcome)
}

func TestPathsMustStayInsideWorkspace(t *testing.T) {
	h := newHarness(t, nil)
	h.write("accumulated/memory.md", "secret")
	h.write("workspace-evil/x.txt", "sibling with a shared prefix")

	cases := []parser.Invocation{
		{Name: parser.CreateFile, Args: []string{"workspace", "../escape.txt"}},
		{Name: parser.CreateDirectory, Args: []string{".", "escape"}},
		{Name: parser.GetFileInfo, Args: []string{"accumulated/memory.md"}},
		{Name: parser.GetFileInfo, Args: []string{"workspace-evil/x.txt"}},
		{Name: parser.TrackFile, Args: []string{"workspace/../accumulated/memory.md"}},
		{Name: parser.Delete, Args: []string{"accumulated"}},
		{Name: parser.Move, Args: []string{"accumulated/memory.md", "workspace/memory.md"}},
		{Name: parser.RewriteFile, Args: []string{"/etc/hostname", "x"}},
	}
	for _, inv := range cases {
		fb := h.one(inv.Name, inv.Args...)
		assert.Equal(t, OutcomeFailure, fb.Outcome, fb.String())
	}
	_, err := os.Stat(filepath.Join(h.base, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(h.base, "accumulated", "memory.md"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(data))
}

func TestGetFileInfo(t *testing.T) {
	h := newHarness(t, nil)
	abs := h.write("workspace/a.txt", "12345")
	require.NoError(t, os.Chmod(abs, 0o640))

	fb := h.one(parser.GetFileInfo, "workspace/a.txt")
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	assert.Contains(t, fb.Message, "size: 5 bytes")
	assert.Contains(t, fb.Message, "permissions: 640")

	assert.Equal(t, OutcomeFailure, h.one(parser.GetFileInfo, "workspace").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.GetFileInfo, "workspace/none.txt").Outcome)
}

func TestTrackingCommands(t *testing.T) {
	h := newHarness(t, nil)
	h.write("workspace/a.txt", "text")
	binary := h.write("workspace/b.bin", "")
	require.NoError(t, os.WriteFile(binary, []byte{0x00, 0x01, 0x02}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(h.ws.Root, "dir"), 0o755))

	assert.Equal(t, OutcomeSuccess, h.one(parser.TrackFile, "./workspace//a.txt").Outcome)
	fb := h.one(parser.TrackFile, "workspace/a.txt")
	assert.Equal(t, OutcomeFailure, fb.Outcome)
	assert.Contains(t, fb.Message, "already tracked")
	assert.Equal(t, OutcomeFailure, h.one(parser.TrackFile, "workspace/b.bin").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.TrackFile, "workspace/dir").Outcome)

	assert.Equal(t, OutcomeSuccess, h.one(parser.TrackDirectory, "workspace/dir").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.TrackDirectory, "workspace/a.txt").Outcome)

	files, err := h.stores.TrackedFiles.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"workspace/a.txt"}, files)
	dirs, err := h.stores.TrackedDirs.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"workspace/dir"}, dirs)

	assert.Equal(t, OutcomeSuccess, h.one(parser.ForgetFile, "workspace/a.txt").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.ForgetFile, "workspace/a.txt").Outcome)
	require.NoError(t, os.RemoveAll(filepath.Join(h.ws.Root, "dir")))
	assert.Equal(t, OutcomeSuccess, h.one(parser.ForgetDirectory, "workspace/dir").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.ForgetDirectory, "workspace/dir").Outcome)
}

func TestDeleteCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.write("workspace/tree/deep/file.txt", "x")
	h.write("workspace/single.txt", "x")

	assert.Equal(t, OutcomeFailure, h.one(parser.Delete, "workspace").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Delete, "workspace/").Outcome)
	assert.Equal(t, OutcomeSuccess, h.one(parser.Delete, "workspace/single.txt").Outcome)
	assert.Equal(t, OutcomeSuccess, h.one(parser.Delete, "workspace/tree").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Delete, "workspace/tree").Outcome)

	entries, err := os.ReadDir(h.ws.Root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMoveCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.write("workspace/src/a.txt", "a")
	h.write("workspace/b.txt", "b")
	require.NoError(t, os.MkdirAll(filepath.Join(h.ws.Root, "dst"), 0o755))

	assert.Equal(t, OutcomeFailure, h.one(parser.Move, "workspace", "workspace/dst/root").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Move, "workspace/src", "workspace/src/inner").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Move, "workspace/src", "workspace/dst").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Move, "workspace/src/a.txt", "workspace/b.txt").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Move, "workspace/none", "workspace/x").Outcome)

	fb := h.one(parser.Move, "workspace/src", "workspace/dst/src")
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	data, err := os.ReadFile(filepath.Join(h.ws.Root, "dst", "src", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestRenameCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.write("workspace/a.txt", "a")
	h.write("workspace/b.txt", "b")

	assert.Equal(t, OutcomeFailure, h.one(parser.Rename, "workspace", "other").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Rename, "workspace/a.txt", "sub/c.txt").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Rename, "workspace/a.txt", `sub\c.txt`).Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Rename, "workspace/a.txt", "..").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.Rename, "workspace/a.txt", "b.txt").Outcome)
	assert.Equal(t, OutcomeSuccess, h.one(parser.Rename, "workspace/a.txt", "a.txt").Outcome)
	assert.Equal(t, OutcomeSuccess, h.one(parser.Rename, "workspace/a.txt", "c.txt").Outcome)

	_, err := os.Stat(filepath.Join(h.ws.Root, "c.txt"))
	assert.NoError(t, err)
}

func TestTextEditingCommands(t *testing.T) {
	h := newHarness(t, nil)
	abs := h.write("workspace/notes.txt", "alpha\nbeta\n")

	fb := h.one(parser.AddToFile, "workspace/notes.txt", `gamma\n`)
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	assert.Contains(t, fb.Message, "(+1/-0 lines)")

	fb = h.one(parser.ReplaceInFile, "workspace/notes.txt", "beta", "BETA")
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	assert.Contains(t, fb.Message, "(+1/-1 lines)")

	fb = h.one(parser.RemoveFromFile, "workspace/notes.txt", `alpha\n`)
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	assert.Contains(t, fb.Message, "(+0/-1 lines)")

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "BETA\ngamma\n", string(data))

	assert.Equal(t, OutcomeFailure, h.one(parser.ReplaceInFile, "workspace/notes.txt", "", "x").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.ReplaceInFile, "workspace/notes.txt", "delta", "x").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.RemoveFromFile, "workspace/notes.txt", "delta").Outcome)
	assert.Equal(t, OutcomeFailure, h.one(parser.AddToFile, "workspace/none.txt", "x").Outcome)

	fb = h.one(parser.RewriteFile, "workspace/notes.txt", `one\ntwo`)
	require.Equal(t, OutcomeSuccess, fb.Outcome, fb.String())
	data, err = os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", string(data))

	bin := h.write("workspace/blob.bin", "")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0x00}, 0o644))
	fb = h.one(parser.RewriteFile, "workspace/blob.bin", "text")
	assert.Equal(t, OutcomeFailure, fb.Outcome)
	assert.Contains(t, fb.Message, "binary")
}
