package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

// Transport delivers a composed request to the relay and returns the
// assistant reply.
type Transport interface {
	Send(ctx context.Context, req ChatRequest) (string, error)
}

// ChatService runs the send flow: compose, record, relay, record the reply.
type ChatService struct {
	sessions    *SessionStore
	attachments *AttachmentManager
	transport   Transport

	sending atomic.Bool
	now     func() time.Time
}

func NewChatService(sessions *SessionStore, attachments *AttachmentManager, transport Transport) *ChatService {
	return &ChatService{
		sessions:    sessions,
		attachments: attachments,
		transport:   transport,
		now:         time.Now,
	}
}

// Sending reports whether a request is in flight.
func (c *ChatService) Sending() bool {
	return c.sending.Load()
}

// Send posts text plus the staged images to the current session. The user
// message is recorded before the relay is called and stays even if the call
// fails. Staged images are consumed by every non-empty attempt.
func (c *ChatService) Send(ctx context.Context, text string) (*domain.SessionMessage, error) {
	if !c.sending.CompareAndSwap(false, true) {
		return nil, domain.ErrSendInProgress
	}
	defer c.sending.Store(false)

	text = strings.TrimSpace(text)
	staged := c.attachments.Take()
	if text == "" && len(staged) == 0 {
		return nil, domain.ErrEmptyRequest
	}

	session, err := c.sessions.CurrentSession()
	if err != nil {
		return nil, fmt.Errorf("get current session: %w", err)
	}

	req := Compose(text, staged, session.Messages)

	userMsg := domain.SessionMessage{
		Text:      text,
		Sender:    domain.SenderUser,
		Images:    staged,
		Timestamp: c.now(),
	}
	if err := c.sessions.AppendMessage(session.ID, userMsg); err != nil {
		return nil, fmt.Errorf("record user message: %w", err)
	}

	start := time.Now()
	reply, err := c.transport.Send(ctx, req)
	if err != nil {
		slog.Debug("chat request failed",
			"session_id", session.ID,
			"kind", req.Kind.String(),
			"images", len(req.Images),
			"error", err,
		)
		return nil, err
	}
	slog.Debug("chat request completed",
		"session_id", session.ID,
		"kind", req.Kind.String(),
		"images", len(req.Images),
		"duration", time.Since(start),
	)

	assistantMsg := domain.SessionMessage{
		Text:      reply,
		Sender:    domain.SenderAssistant,
		Timestamp: c.now(),
	}
	if err := c.sessions.AppendMessage(session.ID, assistantMsg); err != nil {
		return nil, fmt.Errorf("record assistant message: %w", err)
	}
	return &assistantMsg, nil
}
