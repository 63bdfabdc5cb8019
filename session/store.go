package session

import (
	"context"
	"errors"
	"time"

	"github.com/openvitality/careline/types"
)

var (
	// ErrNotFound means no session exists for the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrStoreClosed means the store was closed and can serve no calls.
	ErrStoreClosed = errors.New("session store is closed")

	// ErrInvalidInput means a nil or incomplete argument was passed.
	ErrInvalidInput = errors.New("invalid input")
)

// Store persists session state.
type Store interface {
	// GetOrCreate returns the active session for a user, creating one when
	// none exists. The bool reports whether the session was created.
	GetOrCreate(ctx context.Context, userID string) (*types.Session, bool, error)

	// Get retrieves a session by ID.
	Get(ctx context.Context, sessionID string) (*types.Session, error)

	// Save persists a session (create or update).
	Save(ctx context.Context, session *types.Session) error

	// End marks a session finished with the given status.
	End(ctx context.Context, sessionID string, status types.SessionStatus) error

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// StoreConfig holds tunables shared by the store implementations.
type StoreConfig struct {
	// TTL is how long an idle session is retained; 0 disables expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TTL:       30 * time.Minute,
		KeyPrefix: "careline:",
	}
}
