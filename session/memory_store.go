package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openvitality/careline/types"
)

// MemoryStore is an in-memory Store. Suitable for development and testing;
// data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	byUser   map[string]string // user ID -> active session ID
	closed   bool
	config   StoreConfig
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(config StoreConfig) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		byUser:   make(map[string]string),
		config:   config,
	}
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// GetOrCreate returns the user's active session or starts a new one.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*types.Session, bool, error) {
	if userID == "" {
		return nil, false, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}

	if id, ok := s.byUser[userID]; ok {
		if session, ok := s.sessions[id]; ok && session.Status == types.SessionActive {
			return cloneSession(session), false, nil
		}
	}

	now := time.Now()
	session := &types.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    types.SessionActive,
		Context:   make(map[string]string),
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	s.byUser[userID] = session.ID
	return cloneSession(session), true, nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

// Save persists a session.
func (s *MemoryStore) Save(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = cloneSession(session)
	if session.UserID != "" {
		s.byUser[session.UserID] = session.ID
	}
	return nil
}

// End marks a session finished.
func (s *MemoryStore) End(ctx context.Context, sessionID string, status types.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.Status = status
	session.UpdatedAt = time.Now()
	delete(s.byUser, session.UserID)
	return nil
}

// cloneSession copies a session so callers cannot alias store internals.
func cloneSession(s *types.Session) *types.Session {
	clone := *s
	if s.Context != nil {
		clone.Context = make(map[string]string, len(s.Context))
		for k, v := range s.Context {
			clone.Context[k] = v
		}
	}
	return &clone
}
