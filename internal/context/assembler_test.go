package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokenutil "station/internal/shared/token"
	"station/internal/store"
	"station/internal/workspace"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	base   string
	stores *store.Stores
	ws     workspace.Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	layout := store.Layout{Base: base}
	stores := store.Open(layout, 10, nil, func() time.Time { return fixedNow })
	ws, err := workspace.New(base, layout.Workspace())
	require.NoError(t, err)
	require.NoError(t, ws.Ensure())
	return &fixture{base: base, stores: stores, ws: ws}
}

func (f *fixture) assembler(budgets Budgets) *Assembler {
	return NewAssembler(Sources{
		Stores:        f.stores,
		Workspace:     f.ws,
		Clock:         func() time.Time { return fixedNow },
		HistoryTurns:  10,
		QueryInterval: 90 * time.Second,
	}, budgets, tokenutil.WordOracle{}, nil)
}

func (f *fixture) write(t *testing.T, rel string, data []byte) {
	t.Helper()
	abs := filepath.Join(f.base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, data, 0o644))
}

func TestAssembleRequiresInstructions(t *testing.T) {
	f := newFixture(t)
	_, err := f.assembler(Budgets{Total: 1000, History: 100}).Assemble()
	require.Error(t, err)

	require.NoError(t, f.stores.Instructions.Write("  \n"))
	_, err = f.assembler(Budgets{Total: 1000, History: 100}).Assemble()
	require.Error(t, err)
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Instructions.Write("Use commands."))

	prompt, err := f.assembler(Budgets{Total: 1000, History: 100}).Assemble()
	require.NoError(t, err)
	assert.Equal(t, []string{LabelInstructions, LabelMetadata}, prompt.Sections)
	assert.False(t, prompt.Truncated)

	want := "===== Usage instructions =====\n\nUse commands.\n\n\n\n===== Other information =====\n\n" +
		"Current timestamp → [01.05.2024, 12:00:00]. Number of history turns kept → 10. " +
		"Delay in seconds between model requests → 90. Relative path to the workspace directory → «workspace»."
	assert.Equal(t, want, prompt.Text)
	assert.Equal(t, tokenutil.WordOracle{}.Count(want), prompt.Tokens)
}

func TestAssembleSectionOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Persona.Write("A calm station keeper."))
	require.NoError(t, f.stores.Instructions.Write("Use commands."))
	require.NoError(t, f.stores.History.Append("first turn"))
	require.NoError(t, f.stores.LastFetch.Write("Content of URL «https://x» → {\nhi\n}"))
	f.write(t, "workspace/a.txt", []byte("hello"))
	require.NoError(t, f.stores.TrackedFiles.Add("workspace/a.txt"))
	require.NoError(t, f.stores.Memory.Write("remember tea"))
	require.NoError(t, f.stores.Blacklist.Add("troll", "10.0.0.9", "spam"))
	_, err := f.stores.Chat.Append("ann", "hi there", store.RoleUser, "10.0.0.1")
	require.NoError(t, err)

	prompt, err := f.assembler(Budgets{Total: 10000, History: 1000}).Assemble()
	require.NoError(t, err)
	assert.Equal(t, []string{
		LabelPersona, LabelInstructions, LabelHistory, LabelLastFetch, LabelTracking,
		LabelMemory, LabelMetadata, LabelBlacklist, LabelChat,
	}, prompt.Sections)

	last := -1
	for _, label := range prompt.Sections {
		at := strings.Index(prompt.Text, "===== "+label+" =====")
		require.Greater(t, at, last, label)
		last = at
	}
	assert.Contains(t, prompt.Text, "[01.05.2024, 12:00:00] → {\nfirst turn\n}")
	assert.Contains(t, prompt.Text, "[IP address: «10.0.0.1»]")
}

func TestRenderHistoryNumbering(t *testing.T) {
	one := RenderHistory([]store.HistoryEntry{{Timestamp: "t1", Content: "a"}})
	assert.Equal(t, []string{"[t1] → {\na\n}"}, one)

	two := RenderHistory([]store.HistoryEntry{{Timestamp: "t1", Content: "a"}, {Timestamp: "t2", Content: "b"}})
	assert.Equal(t, []string{"1. [t1] → {\na\n}", "2. [t2] → {\nb\n}"}, two)
}

func TestWindowHistoryStopsAtFirstOversizedTurn(t *testing.T) {
	count := tokenutil.WordOracle{}.Count
	records := []string{"a", "b c d e f", "g"}

	assert.Equal(t, []string{"g"}, WindowHistory(records, 3, count))
	assert.Equal(t, records, WindowHistory(records, 7, count))
	assert.Empty(t, WindowHistory(records, 0, count))
	assert.Empty(t, WindowHistory(nil, 10, count))
}

func TestHistorySectionRespectsBudget(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Instructions.Write("Use commands."))
	for i := 0; i < 6; i++ {
		require.NoError(t, f.stores.History.Append(strings.Repeat("word ", 10)))
	}
	a := f.assembler(Budgets{Total: 10000, History: 40})

	body, err := a.history()
	require.NoError(t, err)
	assert.LessOrEqual(t, tokenutil.WordOracle{}.Count(body), 40)
	assert.Contains(t, body, "6. [")
	assert.NotContains(t, body, "1. [")
}

func TestAssembleTruncatesToTotalBudget(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Instructions.Write(strings.Repeat("lorem ipsum ", 200)))

	prompt, err := f.assembler(Budgets{Total: 50, History: 10}).Assemble()
	require.NoError(t, err)
	assert.True(t, prompt.Truncated)
	assert.True(t, strings.HasSuffix(prompt.Text, TruncationSuffix))
	assert.LessOrEqual(t, tokenutil.WordOracle{}.Count(prompt.Text), 50)
	assert.True(t, strings.HasPrefix(prompt.Text, "===== Usage instructions ====="))
}

func TestTrackingSnapshotDropsStaleEntries(t *testing.T) {
	f := newFixture(t)
	f.write(t, "workspace/a.txt", []byte("hello"))
	f.write(t, "workspace/dir/x.txt", []byte("x"))
	f.write(t, "workspace/blob.bin", []byte{0x00, 0x01})
	f.write(t, "accumulated/secret.txt", []byte("secret"))
	for _, p := range []string{"workspace/a.txt", "workspace/missing.txt", "workspace/blob.bin", "accumulated/secret.txt"} {
		require.NoError(t, f.stores.TrackedFiles.Add(p))
	}
	for _, p := range []string{"workspace/dir", "workspace/a.txt"} {
		require.NoError(t, f.stores.TrackedDirs.Add(p))
	}

	body, err := f.assembler(Budgets{Total: 1000, History: 100}).tracking()
	require.NoError(t, err)
	want := "=== Currently tracked files ===\n\nContent of file «workspace/a.txt» → {\nhello\n}" +
		"\n\n=== Currently tracked directories ===\n\nContents of directory «workspace/dir» → {\n[FILE] x.txt\n}"
	assert.Equal(t, want, body)

	files, err := f.stores.TrackedFiles.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"workspace/a.txt"}, files)
	dirs, err := f.stores.TrackedDirs.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"workspace/dir"}, dirs)
}
