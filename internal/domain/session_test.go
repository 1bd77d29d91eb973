package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	thirty := strings.Repeat("a", 30)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty keeps default", "", DefaultTitle},
		{"short verbatim", "Hello", "Hello"},
		{"exactly thirty verbatim", thirty, thirty},
		{"thirty one truncated", thirty + "b", thirty + "..."},
		{"long truncated", strings.Repeat("xy", 40), strings.Repeat("xy", 15) + "..."},
		{"whitespace kept", "   ", "   "},
		{"counts runes", strings.Repeat("é", 31), strings.Repeat("é", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.text))
		})
	}
}

func TestSessionMessage_Validate(t *testing.T) {
	assert.ErrorIs(t, SessionMessage{Sender: SenderUser}.Validate(), ErrEmptyMessage)
	assert.NoError(t, SessionMessage{Text: "hi"}.Validate())
	assert.NoError(t, SessionMessage{Images: []Attachment{{Name: "a.png"}}}.Validate())
}

func TestChatSession_CloneIsDeep(t *testing.T) {
	s := &ChatSession{
		ID:    "s1",
		Title: "t",
		Messages: []SessionMessage{
			{Text: "one", Images: []Attachment{{Name: "a.png"}}, Timestamp: time.Now()},
		},
	}

	c := s.Clone()
	c.Messages[0].Text = "changed"
	c.Messages[0].Images[0].Name = "b.png"
	c.Messages = append(c.Messages, SessionMessage{Text: "two"})

	require.Len(t, s.Messages, 1)
	assert.Equal(t, "one", s.Messages[0].Text)
	assert.Equal(t, "a.png", s.Messages[0].Images[0].Name)
}

func TestChatSession_Label(t *testing.T) {
	assert.Equal(t, DefaultTitle, (&ChatSession{Title: "  "}).Label())
	assert.Equal(t, "line one line two", (&ChatSession{Title: "line one\nline two"}).Label())
}

func TestRelayError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(&RelayError{Message: "network error", Err: cause})

	var re *RelayError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "relay error: network error", err.Error())

	withStatus := &RelayError{Status: 429, Message: "Rate limit exceeded"}
	assert.Equal(t, "relay error [429]: Rate limit exceeded", withStatus.Error())
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Op: "write", Key: "chatSessions", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage error: write chatSessions: disk full", err.Error())
}
