package tokenutil

import (
	"strings"
	"testing"
)

func TestCountTokens_Empty(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Errorf("CountTokens(\"\") = %d, want 0", got)
	}
}

func TestCountTokens_Simple(t *testing.T) {
	got := CountTokens("hello world")
	if got <= 0 {
		t.Errorf("CountTokens(\"hello world\") = %d, want > 0", got)
	}
	if encoding != nil && got != 2 {
		t.Errorf("CountTokens(\"hello world\") = %d, want 2 (tiktoken)", got)
	}
}

func TestEstimateFast_MinWordCount(t *testing.T) {
	// "a b c d" has 4 words, 7 runes → runes/4=1, but word count=4 → max is 4
	if got := EstimateFast("a b c d"); got != 4 {
		t.Errorf("EstimateFast(\"a b c d\") = %d, want 4", got)
	}
}

func TestEstimateFast_Whitespace(t *testing.T) {
	if got := EstimateFast("   \n\t  "); got != 0 {
		t.Errorf("EstimateFast(whitespace) = %d, want 0", got)
	}
}

func TestTruncateToTokens_NoTruncation(t *testing.T) {
	text := "short"
	if got := TruncateToTokens(text, 100); got != text {
		t.Errorf("TruncateToTokens(%q, 100) = %q, want %q", text, got, text)
	}
}

func TestTruncateToTokens_ZeroMax(t *testing.T) {
	text := "anything"
	if got := TruncateToTokens(text, 0); got != text {
		t.Errorf("TruncateToTokens(%q, 0) = %q, want unchanged", text, got)
	}
}

func TestTruncateToTokens_FitsBudget(t *testing.T) {
	text := strings.Repeat("hello world ", 100)
	got := TruncateToTokens(text, 5)
	if got == text {
		t.Fatal("expected long text to be truncated")
	}
	if strings.HasSuffix(got, "...") {
		t.Fatalf("truncation must not add a marker, got %q", got)
	}
	if encoding != nil && CountTokens(got) > 5 {
		t.Fatalf("truncated text holds %d tokens, want <= 5", CountTokens(got))
	}
}

func TestDefaultOracleMatchesHelpers(t *testing.T) {
	oracle := Default()
	text := "The quick brown fox jumps over the lazy dog"
	if oracle.Count(text) != CountTokens(text) {
		t.Fatalf("oracle count diverges from CountTokens")
	}
	if oracle.Truncate(text, 3) != TruncateToTokens(text, 3) {
		t.Fatalf("oracle truncate diverges from TruncateToTokens")
	}
}

func TestWordOracle(t *testing.T) {
	var oracle WordOracle
	if got := oracle.Count("  one two\nthree "); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
	if got := oracle.Truncate("one two three four", 2); got != "one two " {
		t.Fatalf("Truncate = %q, want %q", got, "one two ")
	}
	if got := oracle.Truncate("one two", 5); got != "one two" {
		t.Fatalf("Truncate = %q, want unchanged", got)
	}
	if got := oracle.Count(oracle.Truncate("a b c d e f", 4)); got != 4 {
		t.Fatalf("truncated count = %d, want 4", got)
	}
}
