package dispatch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"station/internal/parser"
)

// Cycle carries the state of one agent cycle through the dispatcher.
type Cycle struct {
	ID      string
	Started time.Time
	Budget  *Budget
}

// NewCycle starts a cycle with a fresh one-shot budget.
func NewCycle(now time.Time) *Cycle {
	return &Cycle{
		ID:      uuid.NewString(),
		Started: now,
		Budget:  NewBudget(),
	}
}

// Budget records which one-shot commands a cycle has already used.
type Budget struct {
	mu   sync.Mutex
	used map[parser.Name]bool
}

func NewBudget() *Budget {
	return &Budget{used: make(map[parser.Name]bool)}
}

// Consume marks name as used and reports whether it was still available.
// Commands that are not one-shot are always available.
func (b *Budget) Consume(name parser.Name) bool {
	spec, ok := parser.Lookup(name)
	if !ok || !spec.OneShot {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used[name] {
		return false
	}
	b.used[name] = true
	return true
}

// Used reports whether name was consumed in this cycle.
func (b *Budget) Used(name parser.Name) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used[name]
}
