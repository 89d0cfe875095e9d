// Package tokenutil measures and trims text in model-consumable units. It is
// backed by tiktoken-go with the cl100k_base encoding and falls back to a
// character heuristic if the encoding cannot be loaded.
package tokenutil

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Oracle counts and truncates text in tokens.
type Oracle interface {
	Count(text string) int
	// Truncate returns the longest prefix of text that holds at most max
	// tokens. A non-positive max leaves the text untouched.
	Truncate(text string, max int) string
}

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

func initEncoding() {
	once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
}

type tiktokenOracle struct{}

// Default returns the shared tiktoken oracle.
func Default() Oracle {
	initEncoding()
	return tiktokenOracle{}
}

func (tiktokenOracle) Count(text string) int {
	return CountTokens(text)
}

func (tiktokenOracle) Truncate(text string, max int) string {
	return TruncateToTokens(text, max)
}

// CountTokens returns an accurate token count using cl100k_base encoding.
// If tiktoken is unavailable, it falls back to EstimateFast.
func CountTokens(text string) int {
	initEncoding()
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast returns a heuristic token estimate: max(runes/4, word_count).
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	runes := len([]rune(trimmed))
	words := len(strings.Fields(trimmed))
	estimate := runes / 4
	if estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// TruncateToTokens cuts text down to maxTokens. No marker is appended; callers
// that announce truncation add their own suffix.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	initEncoding()
	if encoding != nil {
		tokens := encoding.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return encoding.Decode(tokens[:maxTokens])
	}
	runes := []rune(text)
	limit := maxTokens * 4
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit])
}

// WordOracle counts whitespace separated words. It is deterministic and cheap,
// which makes it the oracle of choice in tests.
type WordOracle struct{}

func (WordOracle) Count(text string) int {
	return len(strings.Fields(text))
}

func (WordOracle) Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	seen := 0
	inWord := false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !space && !inWord {
			if seen == max {
				return text[:i]
			}
			seen++
		}
		inWord = !space
	}
	return text
}
