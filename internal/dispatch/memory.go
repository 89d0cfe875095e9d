package dispatch

import (
	"context"
	"errors"
	"strings"

	"station/internal/parser"
)

var errNothingToEdit = errors.New("the text to look for cannot be empty")

func (d *Dispatcher) memoryAppend(_ context.Context, args []string) (string, error) {
	text := parser.Unescape(arg(args, 0))
	if err := d.world.Stores.Memory.Append(text); err != nil {
		return "", err
	}
	return "Memory was extended with the new text.", nil
}

func (d *Dispatcher) memoryEdit(_ context.Context, args []string) (string, error) {
	old := parser.Unescape(arg(args, 0))
	replacement := parser.Unescape(arg(args, 1))
	if old == "" {
		return "", errNothingToEdit
	}
	err := d.world.Stores.Memory.Update(func(content string) (string, error) {
		if !strings.Contains(content, old) {
			return "", errors.New("the given text was not found in memory, nothing changed")
		}
		return strings.ReplaceAll(content, old, replacement), nil
	})
	if err != nil {
		return "", err
	}
	return "Every occurrence of the given text in memory was edited.", nil
}

func (d *Dispatcher) memoryRemove(_ context.Context, args []string) (string, error) {
	text := parser.Unescape(arg(args, 0))
	if text == "" {
		return "", errNothingToEdit
	}
	err := d.world.Stores.Memory.Update(func(content string) (string, error) {
		if !strings.Contains(content, text) {
			return "", errors.New("the given text does not exist in memory, nothing changed")
		}
		return strings.ReplaceAll(content, text, ""), nil
	})
	if err != nil {
		return "", err
	}
	return "Every occurrence of the given text was removed from memory.", nil
}
