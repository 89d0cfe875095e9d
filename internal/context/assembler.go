// Package context assembles the prompt sent to the model from the station's
// stores under a token budget.
package context

import (
	"fmt"
	"strings"
	"time"

	"station/internal/logging"
	tokenutil "station/internal/shared/token"
	"station/internal/store"
	"station/internal/workspace"
)

// TruncationSuffix is appended when the assembled prompt had to be cut.
const TruncationSuffix = "…\n\nThe prompt was truncated at the approximate token limit! Old or useless records urgently need to be cleaned up!"

const sectionSeparator = "\n\n\n\n"

// Section labels in prompt order.
const (
	LabelPersona      = "Your persona"
	LabelInstructions = "Usage instructions"
	LabelHistory      = "Recent actions history"
	LabelLastFetch    = "Result of the last website fetch"
	LabelTracking     = "Current file system information"
	LabelMemory       = "Long-term memory"
	LabelMetadata     = "Other information"
	LabelBlacklist    = "User blacklist"
	LabelChat         = "Chat with users"
)

// Sources are the inputs of one assembly.
type Sources struct {
	Stores        *store.Stores
	Workspace     workspace.Workspace
	Clock         func() time.Time
	HistoryTurns  int
	QueryInterval time.Duration
}

// Budgets bound the prompt size in oracle units.
type Budgets struct {
	Total   int
	History int
}

// Section is one labeled block of the prompt.
type Section struct {
	Label    string
	Body     string
	Required bool
}

func (s Section) String() string {
	return fmt.Sprintf("===== %s =====\n\n%s", s.Label, s.Body)
}

// Prompt is the assembled text and what went into it.
type Prompt struct {
	Text      string
	Tokens    int
	Truncated bool
	Sections  []string
}

// Assembler builds prompts. It holds no state between calls.
type Assembler struct {
	sources Sources
	budgets Budgets
	oracle  tokenutil.Oracle
	logger  logging.Logger
}

func NewAssembler(sources Sources, budgets Budgets, oracle tokenutil.Oracle, logger logging.Logger) *Assembler {
	if oracle == nil {
		oracle = tokenutil.Default()
	}
	if sources.Clock == nil {
		sources.Clock = time.Now
	}
	return &Assembler{
		sources: sources,
		budgets: budgets,
		oracle:  oracle,
		logger:  logging.Component(logger, "context"),
	}
}

// Assemble renders every section in order and applies the global budget.
// A required section that cannot be produced aborts the assembly.
func (a *Assembler) Assemble() (Prompt, error) {
	sections, err := a.sections()
	if err != nil {
		return Prompt{}, err
	}

	parts := make([]string, 0, len(sections))
	labels := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Body == "" && !s.Required {
			continue
		}
		parts = append(parts, s.String())
		labels = append(labels, s.Label)
	}

	text := strings.Join(parts, sectionSeparator)
	tokens := a.oracle.Count(text)
	prompt := Prompt{Text: text, Tokens: tokens, Sections: labels}
	if a.budgets.Total > 0 && tokens > a.budgets.Total {
		prompt.Text = a.truncate(text)
		prompt.Tokens = a.oracle.Count(prompt.Text)
		prompt.Truncated = true
		a.logger.Warn("prompt truncated from %d to %d tokens", tokens, prompt.Tokens)
	}
	return prompt, nil
}

// truncate cuts text so that text plus the suffix fits the total budget.
func (a *Assembler) truncate(text string) string {
	limit := a.budgets.Total - a.oracle.Count(TruncationSuffix)
	for limit > 0 {
		out := a.oracle.Truncate(text, limit) + TruncationSuffix
		if a.oracle.Count(out) <= a.budgets.Total {
			return out
		}
		limit--
	}
	return a.oracle.Truncate(TruncationSuffix, a.budgets.Total)
}

func (a *Assembler) sections() ([]Section, error) {
	st := a.sources.Stores

	instructions, err := st.Instructions.Read()
	if err != nil {
		return nil, fmt.Errorf("read instructions: %w", err)
	}
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("instructions file %s is empty", st.Instructions.Path())
	}

	return []Section{
		{Label: LabelPersona, Body: a.optional("persona", st.Persona.Read)},
		{Label: LabelInstructions, Body: instructions, Required: true},
		{Label: LabelHistory, Body: a.optional("history", a.history)},
		{Label: LabelLastFetch, Body: a.optional("last fetch", st.LastFetch.Read)},
		{Label: LabelTracking, Body: a.optional("tracking", a.tracking)},
		{Label: LabelMemory, Body: a.optional("memory", st.Memory.Read)},
		{Label: LabelMetadata, Body: a.metadata(), Required: true},
		{Label: LabelBlacklist, Body: a.optional("blacklist", st.Blacklist.Render)},
		{Label: LabelChat, Body: a.optional("chat", func() (string, error) { return st.Chat.Render(true) })},
	}, nil
}

// optional renders a section that is left out when its source fails.
func (a *Assembler) optional(name string, render func() (string, error)) string {
	body, err := render()
	if err != nil {
		a.logger.Warn("%s section skipped: %v", name, err)
		return ""
	}
	return body
}

func (a *Assembler) metadata() string {
	return fmt.Sprintf("Current timestamp → [%s]. Number of history turns kept → %d. Delay in seconds between model requests → %d. Relative path to the workspace directory → «%s».",
		a.sources.Clock().Format(store.TimestampLayout),
		a.sources.HistoryTurns,
		int(a.sources.QueryInterval/time.Second),
		a.sources.Workspace.Display(a.sources.Workspace.Root))
}
