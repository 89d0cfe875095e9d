package store

import (
	"path/filepath"
	"time"

	"station/internal/logging"
)

// Layout names every file station keeps under its base directory.
type Layout struct {
	Base string
}

func (l Layout) path(parts ...string) string {
	return filepath.Join(append([]string{l.Base}, parts...)...)
}

func (l Layout) Users() string { return l.path("accumulated", "authentication.json") }
func (l Layout) Blacklist() string { return l.path("accumulated", "blacklist.json") }
func (l Layout) Chat() string { return l.path("accumulated", "chat.json") }
func (l Layout) History() string { return l.path("accumulated", "history.json") }
func (l Layout) Log() string { return l.path("accumulated", "log.md") }
func (l Layout) Memory() string { return l.path("accumulated", "memory.md") }
func (l Layout) LastFetch() string { return l.path("accumulated", "parsing_result.txt") }
func (l Layout) TrackedFiles() string { return l.path("accumulated", "tracking", "files.json") }
func (l Layout) TrackedDirs() string { return l.path("accumulated", "tracking", "folders.json") }
func (l Layout) ModelUnfreeze() string { return l.path("accumulated", "unfreezing", "llm.json") }
func (l Layout) UserUnfreeze() string { return l.path("accumulated", "unfreezing", "user.json") }
func (l Layout) Persona() string { return l.path("general", "character.md") }
func (l Layout) Instructions() string { return l.path("general", "instructions.md") }
func (l Layout) Settings() string { return l.path("general", "settings.yaml") }
func (l Layout) APIKeys() string { return l.path("general", "api_keys.json") }
func (l Layout) Workspace() string { return l.path("workspace") }

// Stores bundles every persisted store of one station instance.
type Stores struct {
	Layout Layout

	Persona      *TextFile
	Instructions *TextFile
	Memory       *TextFile
	LastFetch    *TextFile

	Chat         *ChatLog
	Blacklist    *Blacklist
	History      *History
	Users        *Users
	TrackedFiles *PathList
	TrackedDirs  *PathList
	Keys         *KeyList

	ModelUnfreeze *Timestamp
	UserUnfreeze  *Timestamp
}

// Open binds all stores to layout. Files are created lazily on first access.
func Open(layout Layout, historyTurns int, logger logging.Logger, now func() time.Time) *Stores {
	return &Stores{
		Layout:        layout,
		Persona:       NewTextFile(layout.Persona()),
		Instructions:  NewTextFile(layout.Instructions()),
		Memory:        NewTextFile(layout.Memory()),
		LastFetch:     NewTextFile(layout.LastFetch()),
		Chat:          NewChatLog(layout.Chat(), logger, now),
		Blacklist:     NewBlacklist(layout.Blacklist(), logger, now),
		History:       NewHistory(layout.History(), historyTurns, logger, now),
		Users:         NewUsers(layout.Users(), logger),
		TrackedFiles:  NewPathList(layout.TrackedFiles(), logger),
		TrackedDirs:   NewPathList(layout.TrackedDirs(), logger),
		Keys:          NewKeyList(layout.APIKeys(), logger),
		ModelUnfreeze: NewTimestamp(layout.ModelUnfreeze(), logger),
		UserUnfreeze:  NewTimestamp(layout.UserUnfreeze(), logger),
	}
}
