package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"station/internal/logging"
)

var (
	ErrUsernameBlocked = errors.New("this username is already blocked")
	ErrIPBlocked       = errors.New("this IP address is already blacklisted")
)

// BlacklistEntry bans a username together with an IP address.
type BlacklistEntry struct {
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	IP        string `json:"ip_address"`
	Reason    string `json:"reason"`
}

func (e BlacklistEntry) Render() string {
	return fmt.Sprintf("[%s] Belongs to user: «%s» [IP address: «%s»] Reason for blocking → {\n%s\n}",
		e.Timestamp, e.Username, e.IP, e.Reason)
}

type Blacklist struct {
	doc *Document[[]BlacklistEntry]
	now func() time.Time
}

func NewBlacklist(path string, logger logging.Logger, now func() time.Time) *Blacklist {
	return &Blacklist{
		doc: NewDocument(path, emptySlice[BlacklistEntry], validateBlacklist, logger),
		now: orNow(now),
	}
}

func validateBlacklist(entries []BlacklistEntry) error {
	for i, e := range entries {
		if e.Username == "" || e.IP == "" {
			return fmt.Errorf("entry %d is missing username or IP address", i)
		}
	}
	return nil
}

func (b *Blacklist) Entries() ([]BlacklistEntry, error) {
	return b.doc.Read()
}

// Add bans username and ip. A username or IP already present is refused.
func (b *Blacklist) Add(username, ip, reason string) error {
	return b.doc.Update(func(entries []BlacklistEntry) ([]BlacklistEntry, error) {
		for _, e := range entries {
			if e.Username == username {
				return nil, ErrUsernameBlocked
			}
			if e.IP == ip {
				return nil, ErrIPBlocked
			}
		}
		return append(entries, BlacklistEntry{
			Timestamp: b.now().Format(TimestampLayout),
			Username:  username,
			IP:        ip,
			Reason:    reason,
		}), nil
	})
}

// Remove lifts every ban on ip.
func (b *Blacklist) Remove(ip string) error {
	return b.doc.Update(func(entries []BlacklistEntry) ([]BlacklistEntry, error) {
		kept := entries[:0:0]
		for _, e := range entries {
			if e.IP != ip {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
}

// Blocked reports whether either the username or the IP address is banned.
func (b *Blacklist) Blocked(username, ip string) (bool, error) {
	entries, err := b.doc.Read()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Username == username || e.IP == ip {
			return true, nil
		}
	}
	return false, nil
}

func (b *Blacklist) Render() (string, error) {
	entries, err := b.doc.Read()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Render())
	}
	return strings.Join(parts, "\n\n"), nil
}
