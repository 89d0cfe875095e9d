package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"station/internal/logging"
)

// TimestampLayout is the human-readable timestamp used in every record.
const TimestampLayout = "02.01.2006, 15:04:05"

// ErrNotFound reports that the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// Chat roles.
const (
	RoleUser          = "User"
	RoleAdministrator = "Administrator"
)

// ChatMessage is one line of the public chat.
type ChatMessage struct {
	Timestamp string `json:"timestamp"`
	Nickname  string `json:"nickname"`
	Role      string `json:"role"`
	ID        int    `json:"id"`
	Content   string `json:"content"`
	IP        string `json:"ip_address,omitempty"`
}

// Render formats the message for the prompt or the public transcript. The IP
// address is only shown to the model.
func (m ChatMessage) Render(withIP bool) string {
	header := fmt.Sprintf("[%s] <%s> (%s) [Message ID: «%d»]", m.Timestamp, m.Nickname, m.Role, m.ID)
	if withIP && m.IP != "" {
		header += fmt.Sprintf(" [IP address: «%s»]", m.IP)
	}
	return header + " → {\n" + m.Content + "\n}"
}

// ChatLog is the shared transcript written by users and the model.
type ChatLog struct {
	doc *Document[[]ChatMessage]
	now func() time.Time
}

func NewChatLog(path string, logger logging.Logger, now func() time.Time) *ChatLog {
	return &ChatLog{
		doc: NewDocument(path, emptySlice[ChatMessage], validateChat, logger),
		now: orNow(now),
	}
}

func validateChat(messages []ChatMessage) error {
	for i, m := range messages {
		if m.ID <= 0 {
			return fmt.Errorf("message %d has no identifier", i)
		}
		if m.Timestamp == "" || m.Nickname == "" || m.Role == "" {
			return fmt.Errorf("message %d is missing required fields", i)
		}
	}
	return nil
}

// Messages returns the transcript in posting order.
func (c *ChatLog) Messages() ([]ChatMessage, error) {
	return c.doc.Read()
}

// Append posts a message. ip is empty for messages written by the model.
func (c *ChatLog) Append(nickname, content, role, ip string) (ChatMessage, error) {
	var posted ChatMessage
	err := c.doc.Update(func(messages []ChatMessage) ([]ChatMessage, error) {
		next := 1
		for _, m := range messages {
			if m.ID >= next {
				next = m.ID + 1
			}
		}
		posted = ChatMessage{
			Timestamp: c.now().Format(TimestampLayout),
			Nickname:  nickname,
			Role:      role,
			ID:        next,
			Content:   content,
			IP:        ip,
		}
		return append(messages, posted), nil
	})
	return posted, err
}

// Delete removes the message with id, returning ErrNotFound if absent.
func (c *ChatLog) Delete(id int) error {
	return c.doc.Update(func(messages []ChatMessage) ([]ChatMessage, error) {
		kept := messages[:0:0]
		for _, m := range messages {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(messages) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
}

// Render returns the transcript as one text block, empty when there is none.
func (c *ChatLog) Render(withIP bool) (string, error) {
	messages, err := c.doc.Read()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Render(withIP))
	}
	return strings.Join(parts, "\n\n"), nil
}

func emptySlice[T any]() []T {
	return []T{}
}

func orNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
