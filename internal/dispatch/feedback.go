package dispatch

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"station/internal/parser"
)

// Outcome classifies the result of one invocation.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailure:
		return "Failure"
	case OutcomeRejected:
		return "Rejected"
	default:
		return "None"
	}
}

// NoCommandMessage is reported when a response holds no well-formed command.
const NoCommandMessage = "No control command was recognized."

// RejectedMessage is the feedback for a repeated one-shot command.
const RejectedMessage = "This command can only be used once per cycle."

// Feedback is the line the model reads back about one invocation.
type Feedback struct {
	Command parser.Name
	Outcome Outcome
	Message string
}

// NoCommand returns the sentinel feedback.
func NoCommand() Feedback {
	return Feedback{Outcome: OutcomeNone, Message: NoCommandMessage}
}

func (f Feedback) String() string {
	if f.Outcome == OutcomeNone {
		if f.Message == "" {
			return NoCommandMessage
		}
		return f.Message
	}
	return fmt.Sprintf("Recognized command %s → (%s) %s", f.Command, f.Outcome, f.Message)
}

// Render joins feedback lines in execution order.
func Render(feedback []Feedback) string {
	lines := make([]string, len(feedback))
	for i, f := range feedback {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

// sentence capitalises msg and closes it with a period.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "!") && !strings.HasSuffix(msg, "?") {
		msg += "."
	}
	return msg
}
