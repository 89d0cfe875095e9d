package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"station/internal/parser"
	"station/internal/store"
)

var whitespace = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func (d *Dispatcher) sendMessage(_ context.Context, args []string) (string, error) {
	nickname := collapse(arg(args, 0))
	text := strings.TrimSpace(parser.Unescape(arg(args, 1)))
	if nickname == "" {
		return "", errors.New("nickname cannot be empty")
	}
	if text == "" {
		return "", errors.New("message cannot be empty")
	}
	msg, err := d.world.Stores.Chat.Append(nickname, text, store.RoleAdministrator, "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Message from «%s» (%s) [Message ID: «%d»] was posted to the chat.",
		msg.Nickname, msg.Role, msg.ID), nil
}

func (d *Dispatcher) deleteMessage(_ context.Context, args []string) (string, error) {
	id, err := naturalNumber(arg(args, 0))
	if err != nil {
		return "", errors.New("the message identifier must be a natural number")
	}
	if err := d.world.Stores.Chat.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("message with identifier «%d» was not found in the chat", id)
		}
		return "", err
	}
	return fmt.Sprintf("Message with identifier «%d» was deleted from the chat.", id), nil
}

// naturalNumber parses a positive decimal integer.
func naturalNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}
