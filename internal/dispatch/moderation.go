package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"station/internal/store"
)

func (d *Dispatcher) punish(_ context.Context, args []string) (string, error) {
	username := collapse(arg(args, 0))
	ip := strings.TrimSpace(arg(args, 1))
	reason := strings.TrimSpace(arg(args, 2))
	switch {
	case username == "":
		return "", errors.New("username cannot be empty")
	case ip == "":
		return "", errors.New("IP address cannot be empty")
	case reason == "":
		return "", errors.New("the reason for blocking cannot be empty")
	}
	if err := d.world.Stores.Blacklist.Add(username, ip, reason); err != nil {
		return "", err
	}
	return fmt.Sprintf("User «%s» was blocked and IP address «%s» was blacklisted.", username, ip), nil
}

func (d *Dispatcher) forgive(_ context.Context, args []string) (string, error) {
	ip := strings.TrimSpace(arg(args, 0))
	if ip == "" {
		return "", errors.New("IP address cannot be empty")
	}
	if err := d.world.Stores.Blacklist.Remove(ip); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("no blacklist entry with IP address «%s» was found", ip)
		}
		return "", err
	}
	return fmt.Sprintf("The blacklist entry with IP address «%s» was removed.", ip), nil
}
