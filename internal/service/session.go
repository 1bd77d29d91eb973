package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository"
)

// SessionRepository persists the whole session table.
type SessionRepository interface {
	Load() (repository.Snapshot, error)
	Save(snap repository.Snapshot) error
}

// SessionStore owns every chat session of the client. Callers only ever see
// deep copies.
type SessionStore struct {
	mu       sync.Mutex
	repo     SessionRepository
	sessions map[string]*domain.ChatSession
	order    []string // insertion order, mirrors the persisted key list
	current  string

	listener func(*domain.ChatSession)
	now      func() time.Time
	newID    func() string
}

func NewSessionStore(repo SessionRepository) *SessionStore {
	return &SessionStore{
		repo:     repo,
		sessions: make(map[string]*domain.ChatSession),
		now:      time.Now,
		newID:    newSessionID,
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// OnSwitch registers fn to be called with the new current session whenever
// the current pointer moves.
func (s *SessionStore) OnSwitch(fn func(*domain.ChatSession)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Load restores the table from the repository. An unreadable store is
// logged and replaced by a fresh one.
func (s *SessionStore) Load() {
	snap, err := s.repo.Load()
	if err != nil {
		slog.Warn("failed to load sessions, starting empty", "error", err)
		snap = repository.Snapshot{}
	}

	s.mu.Lock()
	s.sessions = make(map[string]*domain.ChatSession, len(snap.Sessions))
	s.order = s.order[:0]
	for _, sess := range snap.Sessions {
		if _, dup := s.sessions[sess.ID]; dup {
			continue
		}
		s.sessions[sess.ID] = sess
		s.order = append(s.order, sess.ID)
	}
	s.current = snap.CurrentID

	if len(s.order) == 0 {
		s.createLocked()
		s.persistLocked()
	} else if _, ok := s.sessions[s.current]; !ok {
		s.current = s.mostRecentLocked().ID
		s.persistLocked()
	}
	s.mu.Unlock()
}

// CreateSession starts an empty session and makes it current.
func (s *SessionStore) CreateSession() *domain.ChatSession {
	s.mu.Lock()
	sess := s.createLocked()
	s.persistLocked()
	clone := sess.Clone()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(clone.Clone())
	}
	return clone
}

func (s *SessionStore) createLocked() *domain.ChatSession {
	now := s.now()
	sess := &domain.ChatSession{
		ID:        s.newID(),
		Title:     domain.DefaultTitle,
		Messages:  []domain.SessionMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	s.current = sess.ID
	return sess
}

// SwitchSession makes id current. Unknown ids leave the store untouched.
func (s *SessionStore) SwitchSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	s.current = id
	s.persistLocked()
	clone := sess.Clone()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(clone)
	}
	return nil
}

// DeleteSession removes id. The last remaining session can't be deleted.
// When the current session goes away, the most recently updated survivor
// takes its place.
func (s *SessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	if len(s.sessions) <= 1 {
		s.mu.Unlock()
		return domain.ErrLastSession
	}

	delete(s.sessions, id)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == id })

	var switched *domain.ChatSession
	if s.current == id {
		next := s.mostRecentLocked()
		s.current = next.ID
		switched = next.Clone()
	}
	s.persistLocked()
	listener := s.listener
	s.mu.Unlock()

	if switched != nil && listener != nil {
		listener(switched)
	}
	return nil
}

// RenameSession replaces the title of id.
func (s *SessionStore) RenameSession(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Title = title
	sess.UpdatedAt = s.now()
	s.persistLocked()
	return nil
}

// AppendMessage adds msg to session id. The first message with text names
// the session; later messages never rename it.
func (s *SessionStore) AppendMessage(id string, msg domain.SessionMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("append message to %s: %w", id, domain.ErrSessionNotFound)
	}

	now := s.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	// payloads live only while staged
	if len(msg.Images) > 0 {
		images := make([]domain.Attachment, len(msg.Images))
		for i, img := range msg.Images {
			img.Data = nil
			images[i] = img
		}
		msg.Images = images
	}

	if len(sess.Messages) == 0 && msg.Text != "" {
		sess.Title = domain.DeriveTitle(msg.Text)
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = now
	s.persistLocked()
	return nil
}

func (s *SessionStore) CurrentSession() (*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[s.current]
	if !ok {
		return nil, domain.ErrNoSession
	}
	return sess.Clone(), nil
}

func (s *SessionStore) Session(id string) (*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Sessions lists every session, most recently updated first.
func (s *SessionStore) Sessions() []*domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*domain.ChatSession, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		list = append(list, s.sessions[s.order[i]].Clone())
	}
	slices.SortStableFunc(list, func(a, b *domain.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return list
}

// CurrentID returns the current session id, empty before Load.
func (s *SessionStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// mostRecentLocked picks the session with the latest UpdatedAt. Ties go to
// the one later in insertion order. The table must not be empty.
func (s *SessionStore) mostRecentLocked() *domain.ChatSession {
	var best *domain.ChatSession
	for _, id := range s.order {
		sess := s.sessions[id]
		if best == nil || !sess.UpdatedAt.Before(best.UpdatedAt) {
			best = sess
		}
	}
	return best
}

func (s *SessionStore) persistLocked() {
	snap := repository.Snapshot{
		Sessions:  make([]*domain.ChatSession, 0, len(s.order)),
		CurrentID: s.current,
	}
	for _, id := range s.order {
		snap.Sessions = append(snap.Sessions, s.sessions[id])
	}
	if err := s.repo.Save(snap); err != nil {
		slog.Warn("failed to persist sessions", "error", err)
	}
}
