package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType    = errors.New("unsupported file type: only images can be attached")
	ErrAttachmentTooLarge = errors.New("attachment too large")
	ErrEmptyRequest       = errors.New("message or image is required")
	ErrEmptyMessage       = errors.New("message has neither text nor images")
	ErrSessionNotFound    = errors.New("session not found")
	ErrLastSession        = errors.New("cannot delete the last remaining session")
	ErrNoSession          = errors.New("no session")
	ErrSendInProgress     = errors.New("a message is already being sent")
	ErrModelNotFound      = errors.New("model not found")
)

// DefaultRelayMessage is shown when the relay fails without saying why.
const DefaultRelayMessage = "Failed to get response from AI"

// RelayError is any failure surfaced by or through the relay.
type RelayError struct {
	Status  int // 0 when the relay was never reached
	Message string
	Err     error
}

func (e *RelayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("relay error: %s", e.Message)
	}
	return fmt.Sprintf("relay error [%d]: %s", e.Status, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed read or write of persisted client state.
type StorageError struct {
	Op  string // "read", "write", "decode", "encode"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
