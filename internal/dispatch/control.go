package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"station/internal/store"
)

func (d *Dispatcher) clearHistory(_ context.Context, _ []string) (string, error) {
	if err := d.world.Stores.History.Clear(); err != nil {
		return "", err
	}
	return "The history of previous cycles was cleared.", nil
}

// wait freezes the model for the given number of minutes.
func (d *Dispatcher) wait(_ context.Context, args []string) (string, error) {
	minutes, err := naturalNumber(arg(args, 0))
	if err != nil {
		return "", errors.New("the number of minutes must be a natural number")
	}
	until := d.world.Clock().Add(time.Duration(minutes) * time.Minute)
	if err := d.world.Stores.ModelUnfreeze.Set(until); err != nil {
		return "", err
	}
	return fmt.Sprintf("A delay of %d minute(s) was set. The next request will happen no earlier than %s, unless a user message arrives.",
		minutes, until.Format(store.TimestampLayout)), nil
}
