package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no session exists for the key.
// Callers treat it as "create a new session", never as a hard failure.
var ErrNotFound = errors.New("session not found")

// Store persists sessions between turns. Implementations apply per-key
// expiry: a session unread for longer than its TTL is gone on next Get.
type Store interface {
	// Get retrieves a session by id. Returns ErrNotFound if the session
	// does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores a session, resetting its expiry window.
	Put(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
