// Package dispatch executes the control commands recognized in a model
// response and reports one feedback line per invocation.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	serrors "station/internal/errors"
	"station/internal/logging"
	"station/internal/parser"
	"station/internal/store"
	"station/internal/webfetch"
	"station/internal/workspace"
)

// PageFetcher downloads a URL as plain text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (webfetch.Page, error)
}

// Observer receives one call per executed invocation.
type Observer interface {
	ObserveCommand(name, outcome string, elapsed time.Duration)
}

// World is everything command handlers act upon.
type World struct {
	Stores    *store.Stores
	Workspace workspace.Workspace
	Fetcher   PageFetcher
	Clock     func() time.Time
}

type handler func(ctx context.Context, args []string) (string, error)

// Dispatcher maps catalog commands to their handlers.
type Dispatcher struct {
	world    World
	handlers map[parser.Name]handler
	logger   logging.Logger
	observer Observer
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.Component(logger, "dispatch") }
}

func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) { d.observer = observer }
}

// New builds a dispatcher and fails when a catalog command has no handler.
func New(world World, opts ...Option) (*Dispatcher, error) {
	if world.Stores == nil {
		return nil, fmt.Errorf("dispatch: stores are required")
	}
	if world.Clock == nil {
		world.Clock = time.Now
	}
	d := &Dispatcher{world: world, logger: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[parser.Name]handler{
		parser.MemoryAppend: d.memoryAppend,
		parser.MemoryEdit:   d.memoryEdit,
		parser.MemoryRemove: d.memoryRemove,

		parser.SendMessage:   d.sendMessage,
		parser.DeleteMessage: d.deleteMessage,
		parser.Punish:        d.punish,
		parser.Forgive:       d.forgive,

		parser.FetchURL:            d.fetchURL,
		parser.ClearLastURLContent: d.clearLastURLContent,

		parser.CreateFile:      d.createFile,
		parser.GetFileInfo:     d.getFileInfo,
		parser.TrackFile:       d.trackFile,
		parser.ForgetFile:      d.forgetFile,
		parser.CreateDirectory: d.createDirectory,
		parser.TrackDirectory:  d.trackDirectory,
		parser.ForgetDirectory: d.forgetDirectory,
		parser.Delete:          d.delete,
		parser.Move:            d.move,
		parser.Rename:          d.rename,
		parser.AddToFile:       d.addToFile,
		parser.ReplaceInFile:   d.replaceInFile,
		parser.RemoveFromFile:  d.removeFromFile,
		parser.RewriteFile:     d.rewriteFile,

		parser.ClearHistory: d.clearHistory,
		parser.Wait:         d.wait,
	}
	if missing := d.missingHandlers(); len(missing) > 0 {
		return nil, fmt.Errorf("dispatch: no handler for %s", strings.Join(missing, ", "))
	}
	return d, nil
}

func (d *Dispatcher) missingHandlers() []string {
	var missing []string
	for _, spec := range parser.Catalog() {
		if _, ok := d.handlers[spec.Name]; !ok {
			missing = append(missing, string(spec.Name))
		}
	}
	return missing
}

// Execute runs invocations in the given order. The result holds one feedback
// per invocation, or the sentinel when there are none.
func (d *Dispatcher) Execute(ctx context.Context, cycle *Cycle, invocations []parser.Invocation) []Feedback {
	if len(invocations) == 0 {
		return []Feedback{NoCommand()}
	}
	if cycle == nil {
		cycle = NewCycle(d.world.Clock())
	}
	out := make([]Feedback, 0, len(invocations))
	for _, inv := range invocations {
		start := time.Now()
		spanCtx, span := startCommandSpan(ctx, cycle, inv.Name)
		fb := d.executeOne(spanCtx, cycle, inv)
		markCommandSpan(span, fb)
		span.End()
		if d.observer != nil {
			d.observer.ObserveCommand(string(inv.Name), fb.Outcome.String(), time.Since(start))
		}
		d.logger.Debug("cycle %s: %s", cycle.ID, fb.String())
		out = append(out, fb)
	}
	return out
}

func (d *Dispatcher) executeOne(ctx context.Context, cycle *Cycle, inv parser.Invocation) (fb Feedback) {
	fb.Command = inv.Name
	h, ok := d.handlers[inv.Name]
	if !ok {
		fb.Outcome = OutcomeFailure
		fb.Message = "Unknown command."
		return fb
	}
	if !cycle.Budget.Consume(inv.Name) {
		fb.Outcome = OutcomeRejected
		fb.Message = RejectedMessage
		return fb
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command %s panicked: %v\n%s", inv.Name, r, debug.Stack())
			fb.Outcome = OutcomeFailure
			fb.Message = fmt.Sprintf("Internal error while executing the command: %v.", r)
		}
	}()

	msg, err := h(ctx, inv.Args)
	if err != nil {
		fb.Outcome = OutcomeFailure
		fb.Message = sentence(serrors.FormatMessage(err))
		return fb
	}
	fb.Outcome = OutcomeSuccess
	fb.Message = msg
	return fb
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
