package repository

import (
	"encoding/json"
	"fmt"

	"github.com/set-night/mindchat/internal/domain"
)

// Storage keys shared by every KV backend.
const (
	SessionsKey       = "chatSessions"
	CurrentSessionKey = "currentChatId"
)

// Snapshot is the persisted form of the client's session table.
type Snapshot struct {
	Sessions  []*domain.ChatSession // in key-list order
	CurrentID string
}

// sessionEntry encodes as a two element JSON array: [id, session].
type sessionEntry struct {
	ID      string
	Session *domain.ChatSession
}

func (e sessionEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Session})
}

func (e *sessionEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("session entry: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.ID); err != nil {
		return fmt.Errorf("session entry id: %w", err)
	}
	e.Session = &domain.ChatSession{}
	if err := json.Unmarshal(raw[1], e.Session); err != nil {
		return fmt.Errorf("session entry %s: %w", e.ID, err)
	}
	return nil
}

type SessionRepository struct {
	kv KV
}

func NewSessionRepository(kv KV) *SessionRepository {
	return &SessionRepository{kv: kv}
}

// Save writes the session collection and the current pointer.
func (r *SessionRepository) Save(snap Snapshot) error {
	raw, err := EncodeSessions(snap.Sessions)
	if err != nil {
		return &domain.StorageError{Op: "encode", Key: SessionsKey, Err: err}
	}
	if err := r.kv.Set(SessionsKey, raw); err != nil {
		return &domain.StorageError{Op: "write", Key: SessionsKey, Err: err}
	}
	if err := r.kv.Set(CurrentSessionKey, snap.CurrentID); err != nil {
		return &domain.StorageError{Op: "write", Key: CurrentSessionKey, Err: err}
	}
	return nil
}

// Load reads both entries. Missing entries yield an empty snapshot.
func (r *SessionRepository) Load() (Snapshot, error) {
	var snap Snapshot

	raw, ok, err := r.kv.Get(SessionsKey)
	if err != nil {
		return Snapshot{}, &domain.StorageError{Op: "read", Key: SessionsKey, Err: err}
	}
	if ok && raw != "" {
		sessions, err := DecodeSessions(raw)
		if err != nil {
			return Snapshot{}, &domain.StorageError{Op: "decode", Key: SessionsKey, Err: err}
		}
		snap.Sessions = sessions
	}

	current, _, err := r.kv.Get(CurrentSessionKey)
	if err != nil {
		return Snapshot{}, &domain.StorageError{Op: "read", Key: CurrentSessionKey, Err: err}
	}
	snap.CurrentID = current

	return snap, nil
}

// EncodeSessions serializes sessions as an ordered list of [id, session] pairs.
func EncodeSessions(sessions []*domain.ChatSession) (string, error) {
	entries := make([]sessionEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, sessionEntry{ID: s.ID, Session: s})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeSessions(raw string) ([]*domain.ChatSession, error) {
	var entries []sessionEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	sessions := make([]*domain.ChatSession, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		e.Session.ID = e.ID
		if e.Session.Messages == nil {
			e.Session.Messages = []domain.SessionMessage{}
		}
		sessions = append(sessions, e.Session)
	}
	return sessions, nil
}
