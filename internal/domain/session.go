package domain

import (
	"strings"
	"time"
)

const (
	DefaultTitle   = "New Chat"
	TitleMaxLength = 30
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type ChatSession struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Messages  []SessionMessage `json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type SessionMessage struct {
	Text      string       `json:"text"`
	Sender    Sender       `json:"sender"`
	Images    []Attachment `json:"images,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Attachment is a staged or sent image. Data is only held while staged and
// is never persisted.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Preview   string `json:"preview"`
	Data      []byte `json:"-"`
}

// Validate enforces that a message carries text or at least one image.
func (m SessionMessage) Validate() error {
	if m.Text == "" && len(m.Images) == 0 {
		return ErrEmptyMessage
	}
	return nil
}

// DeriveTitle builds a session title from the first message text.
func DeriveTitle(text string) string {
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) > TitleMaxLength {
		return string(runes[:TitleMaxLength]) + "..."
	}
	return text
}

// Clone returns a deep copy; attachment payloads are shared read-only.
func (s *ChatSession) Clone() *ChatSession {
	c := *s
	c.Messages = make([]SessionMessage, len(s.Messages))
	for i, m := range s.Messages {
		if m.Images != nil {
			m.Images = append([]Attachment(nil), m.Images...)
		}
		c.Messages[i] = m
	}
	return &c
}

// Label is the one-line form used in session lists.
func (s *ChatSession) Label() string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		return DefaultTitle
	}
	return strings.ReplaceAll(title, "\n", " ")
}
