package parser

import (
	"sort"
	"strings"
)

// Invocation is one recognized command occurrence. Start and End are byte
// offsets into the scanned text; End points at the last byte of the syntax.
type Invocation struct {
	Name  Name
	Args  []string
	Start int
	End   int
}

// Spec returns the grammar entry of the invoked command.
func (inv Invocation) Spec() Spec {
	spec, _ := Lookup(inv.Name)
	return spec
}

// Find returns the nearest catalog name occurring at or after cursor. Ties on
// the same offset go to the earlier catalog row.
func Find(text string, cursor int) (Spec, int, bool) {
	return newOccurrences(text).find(cursor)
}

// Next scans text from cursor for the next well-formed invocation. It returns
// the cursor to resume from; ok is false when the nearest name was malformed.
// A next cursor of -1 means nothing is left to scan.
func Next(text string, cursor int) (Invocation, int, bool) {
	return newOccurrences(text).next(cursor)
}

// occurrences holds the sorted offsets of every catalog name and delimiter in
// one text. Lookups are binary searches.
type occurrences struct {
	text  string
	names [][]int
	open  []int
	sep   []int
	close []int
}

func newOccurrences(text string) *occurrences {
	o := &occurrences{
		text:  text,
		names: make([][]int, len(catalog)),
		open:  offsetsOf(text, OpenDelimiter),
		sep:   offsetsOf(text, SeparatorDelimiter),
		close: offsetsOf(text, CloseDelimiter),
	}
	for i, spec := range catalog {
		o.names[i] = offsetsOf(text, string(spec.Name))
	}
	return o
}

// offsetsOf lists every start offset of sub in text, overlapping ones
// included, in increasing order.
func offsetsOf(text, sub string) []int {
	var out []int
	for from := 0; from <= len(text)-len(sub); {
		idx := strings.Index(text[from:], sub)
		if idx == -1 {
			break
		}
		out = append(out, from+idx)
		from += idx + 1
	}
	return out
}

// firstAtOrAfter returns the smallest offset in offsets that is >= pos, or -1.
func firstAtOrAfter(offsets []int, pos int) int {
	i := sort.SearchInts(offsets, pos)
	if i == len(offsets) {
		return -1
	}
	return offsets[i]
}

func (o *occurrences) find(cursor int) (Spec, int, bool) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(o.text) {
		return Spec{}, -1, false
	}
	best := -1
	var found Spec
	for i, spec := range catalog {
		at := firstAtOrAfter(o.names[i], cursor)
		if at == -1 {
			continue
		}
		if best == -1 || at < best {
			best = at
			found = spec
		}
	}
	if best == -1 {
		return Spec{}, -1, false
	}
	return found, best, true
}

func (o *occurrences) next(cursor int) (Invocation, int, bool) {
	spec, begin, found := o.find(cursor)
	if !found {
		return Invocation{}, -1, false
	}
	afterName := begin + len(spec.Name)

	if spec.Arity == 0 {
		inv := Invocation{Name: spec.Name, Start: begin, End: afterName - 1}
		return inv, afterName, true
	}

	args, end, ok := o.extractArguments(afterName, spec.Arity)
	if !ok {
		return Invocation{}, afterName, false
	}
	return Invocation{Name: spec.Name, Args: args, Start: begin, End: end}, end + 1, true
}

// extractArguments reads arity delimited arguments starting at the byte right
// after the command name. It returns the offset of the last consumed byte.
func (o *occurrences) extractArguments(at, arity int) ([]string, int, bool) {
	if !strings.HasPrefix(o.text[at:], OpenDelimiter) {
		return nil, 0, false
	}
	current := at + len(OpenDelimiter)
	args := make([]string, 0, arity)
	for i := 0; i < arity; i++ {
		delimiter, offsets := SeparatorDelimiter, o.sep
		if i == arity-1 {
			delimiter, offsets = CloseDelimiter, o.close
		}
		stop := firstAtOrAfter(offsets, current)
		if stop == -1 {
			return nil, 0, false
		}
		// Another command's opening inside an argument means the model nested
		// or broke the syntax; swallowing it as text would hide that command.
		if nested := firstAtOrAfter(o.open, current); nested != -1 && nested+len(OpenDelimiter) <= stop {
			return nil, 0, false
		}
		args = append(args, o.text[current:stop])
		current = stop + len(delimiter)
	}
	return args, current - 1, true
}

// Scan extracts every well-formed invocation in dispatch order: priority
// commands first, the last one found leading, then normal commands in the
// order they appear.
func Scan(text string) []Invocation {
	var priority, normal []Invocation
	occ := newOccurrences(text)
	cursor := 0
	for cursor >= 0 && cursor < len(text) {
		inv, next, ok := occ.next(cursor)
		if ok {
			if inv.Spec().Order == OrderPriority {
				priority = append(priority, inv)
			} else {
				normal = append(normal, inv)
			}
		}
		cursor = next
	}

	out := make([]Invocation, 0, len(priority)+len(normal))
	for i := len(priority) - 1; i >= 0; i-- {
		out = append(out, priority[i])
	}
	return append(out, normal...)
}

// Render writes inv back in canonical wire syntax.
func Render(inv Invocation) string {
	if len(inv.Args) == 0 {
		return string(inv.Name)
	}
	var b strings.Builder
	b.WriteString(string(inv.Name))
	b.WriteString(OpenDelimiter)
	b.WriteString(strings.Join(inv.Args, SeparatorDelimiter))
	b.WriteString(CloseDelimiter)
	return b.String()
}
