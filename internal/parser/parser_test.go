package parser

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(invs []Invocation) []Name {
	out := make([]Name, 0, len(invs))
	for _, inv := range invs {
		out = append(out, inv.Name)
	}
	return out
}

func TestScanFindsInvocationInsideProse(t *testing.T) {
	prefixes := []string{"", "Hello there. ", strings.Repeat("lorem ipsum ", 500)}
	for _, prefix := range prefixes {
		text := prefix + "MemoryEdit($$$$$old fact$$$$$, $$$$$new fact$$$$$)" + " and that is all."
		invs := Scan(text)
		require.Len(t, invs, 1)
		assert.Equal(t, MemoryEdit, invs[0].Name)
		assert.Equal(t, []string{"old fact", "new fact"}, invs[0].Args)
		assert.Equal(t, len(prefix), invs[0].Start)
		assert.Equal(t, byte(')'), text[invs[0].End])
	}
}

func TestScanEmptyArguments(t *testing.T) {
	invs := Scan("ReplaceInFile($$$$$a.txt$$$$$, $$$$$$$$$$, $$$$$x$$$$$)")
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"a.txt", "", "x"}, invs[0].Args)
}

func TestBareMentionIsSkippedButLaterUseIsFound(t *testing.T) {
	text := "I should use SendMessage to reply. SendMessage($$$$$bot$$$$$, $$$$$hi$$$$$)"
	invs := Scan(text)
	require.Len(t, invs, 1)
	assert.Equal(t, SendMessage, invs[0].Name)
	assert.Equal(t, []string{"bot", "hi"}, invs[0].Args)
}

func TestSpaceBeforeArgumentsIsNotACommand(t *testing.T) {
	assert.Empty(t, Scan("Wait ($$$$$5$$$$$)"))
}

func TestMissingDelimiterRejectsInvocation(t *testing.T) {
	assert.Empty(t, Scan("MemoryEdit($$$$$only one argument$$$$$)"))
	assert.Empty(t, Scan("MemoryAppend($$$$$never closed"))
}

func TestNestedOpeningDelimiterRejectsWholeInvocation(t *testing.T) {
	text := "MemoryAppend($$$$$note Wait($$$$$5$$$$$)"
	invs := Scan(text)
	// The outer MemoryAppend is rejected; scanning resumes after its name and
	// still discovers the inner Wait.
	require.Len(t, invs, 1)
	assert.Equal(t, Wait, invs[0].Name)
	assert.Equal(t, []string{"5"}, invs[0].Args)
}

func TestNestedGuardAppliesToEveryArgument(t *testing.T) {
	text := "Move($$$$$a$$$$$, $$$$$b($$$$$c$$$$$)"
	for _, inv := range Scan(text) {
		assert.NotEqual(t, Move, inv.Name)
	}
}

func TestZeroArityCommandsNeedOnlyTheName(t *testing.T) {
	invs := Scan("done. ClearHistory now")
	require.Len(t, invs, 1)
	assert.Equal(t, ClearHistory, invs[0].Name)
	assert.Empty(t, invs[0].Args)
	assert.Equal(t, 6+len("ClearHistory")-1, invs[0].End)
}

func TestCatalogOrderBreaksTiesAtSameOffset(t *testing.T) {
	invs := Scan("DeleteMessage($$$$$3$$$$$)")
	require.Len(t, invs, 1)
	assert.Equal(t, DeleteMessage, invs[0].Name)

	// A malformed DeleteMessage does not fall back to Delete at the same offset.
	assert.Empty(t, Scan("DeleteMessage"))
}

func TestPriorityOrdering(t *testing.T) {
	text := "DeleteMessage($$$$$1$$$$$) then SendMessage($$$$$a$$$$$, $$$$$b$$$$$) then DeleteMessage($$$$$2$$$$$)"
	invs := Scan(text)
	require.Len(t, invs, 3)
	assert.Equal(t, []Name{DeleteMessage, DeleteMessage, SendMessage}, names(invs))
	assert.Equal(t, []string{"2"}, invs[0].Args)
	assert.Equal(t, []string{"1"}, invs[1].Args)
}

func TestPriorityClassesInterleave(t *testing.T) {
	text := "Wait($$$$$1$$$$$) ClearLastURLContent DeleteMessage($$$$$9$$$$$) MemoryAppend($$$$$x$$$$$)"
	assert.Equal(t, []Name{DeleteMessage, ClearLastURLContent, Wait, MemoryAppend}, names(Scan(text)))
}

func TestScanIsIdempotent(t *testing.T) {
	text := "blah FetchURL($$$$$https://x$$$$$) blah Wait($$$$$abc$$$$$) DeleteMessage($$$$$4$$$$$)"
	assert.Equal(t, Scan(text), Scan(text))
}

func TestEndToEndExample(t *testing.T) {
	invs := Scan("blah FetchURL($$$$$https://x$$$$$) blah Wait($$$$$abc$$$$$)")
	require.Len(t, invs, 2)
	assert.Equal(t, FetchURL, invs[0].Name)
	assert.Equal(t, []string{"https://x"}, invs[0].Args)
	assert.Equal(t, Wait, invs[1].Name)
	assert.Equal(t, []string{"abc"}, invs[1].Args)
}

func TestScanMalformedMentionsKeepOrder(t *testing.T) {
	text := "Wait Wait($$$$$ Wait($$$$$a Forgive($$$$$1.2.3.4$$$$$)"
	invs := Scan(text)
	require.Len(t, invs, 1)
	assert.Equal(t, Forgive, invs[0].Name)
	assert.Equal(t, []string{"1.2.3.4"}, invs[0].Args)
}

func TestScanGrowsLinearly(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	// Bare names and unterminated argument lists force a rejection at every
	// mention, which is the worst case for the scanner.
	chunk := "Wait Move($$$$$ MemoryAppend "
	measure := func(n int) time.Duration {
		text := strings.Repeat(chunk, n)
		best := time.Duration(math.MaxInt64)
		for i := 0; i < 3; i++ {
			started := time.Now()
			invs := Scan(text)
			elapsed := time.Since(started)
			require.Empty(t, invs)
			if elapsed < best {
				best = elapsed
			}
		}
		return best
	}

	small := measure(5000)
	large := measure(20000)
	if small < time.Millisecond {
		small = time.Millisecond
	}
	assert.Less(t, large, 10*small, "4x input took %s vs %s", large, small)
}

func BenchmarkScanLargeProse(b *testing.B) {
	text := strings.Repeat("Wait a moment, then Move($$$$$a$$$$$, $$$$$b$$$$$) ", 4000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Scan(text)
	}
}

func TestNextReportsResumeCursor(t *testing.T) {
	text := "Wait oops"
	inv, next, ok := Next(text, 0)
	assert.False(t, ok)
	assert.Equal(t, len("Wait"), next)
	assert.Equal(t, Invocation{}, inv)

	_, next, ok = Next(text, next)
	assert.False(t, ok)
	assert.Equal(t, -1, next)
}

func TestFindHonoursCursor(t *testing.T) {
	text := "Wait Move"
	spec, at, ok := Find(text, 1)
	require.True(t, ok)
	assert.Equal(t, Move, spec.Name)
	assert.Equal(t, 5, at)

	_, _, ok = Find(text, len(text))
	assert.False(t, ok)
}

func TestRenderRoundTrip(t *testing.T) {
	for _, inv := range []Invocation{
		{Name: Punish, Args: []string{"eve", "10.0.0.1", "spam"}},
		{Name: ClearHistory},
		{Name: Wait, Args: []string{"5"}},
	} {
		got := Scan("prefix " + Render(inv) + " suffix")
		require.Len(t, got, 1)
		assert.Equal(t, inv.Name, got[0].Name)
		assert.Equal(t, len(inv.Args), len(got[0].Args))
		if len(inv.Args) > 0 {
			assert.Equal(t, inv.Args, got[0].Args)
		}
	}
}

func TestCatalogShape(t *testing.T) {
	specs := Catalog()
	require.Len(t, specs, 25)
	seen := map[Name]bool{}
	for _, spec := range specs {
		assert.False(t, seen[spec.Name], "duplicate %s", spec.Name)
		seen[spec.Name] = true
		looked, ok := Lookup(spec.Name)
		require.True(t, ok)
		assert.Equal(t, spec, looked)
	}

	oneShot := map[Name]bool{}
	priority := map[Name]bool{}
	for _, spec := range specs {
		if spec.OneShot {
			oneShot[spec.Name] = true
		}
		if spec.Order == OrderPriority {
			priority[spec.Name] = true
		}
	}
	assert.Equal(t, map[Name]bool{SendMessage: true, FetchURL: true, ClearLastURLContent: true, ClearHistory: true, Wait: true}, oneShot)
	assert.Equal(t, map[Name]bool{DeleteMessage: true, ClearLastURLContent: true}, priority)
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "a\nb\tc", Unescape(`a\nb\tc`))
	assert.Equal(t, "plain", Unescape("plain"))
}
