package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openvitality/careline/internal/metrics"
	"github.com/openvitality/careline/types"
)

// Manager composes the session store and the turn log behind the
// operations the conversation pipeline needs.
type Manager struct {
	store     Store
	history   *HistoryStore
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewManager builds a session manager. history and collector may be nil;
// turn logging and metrics are then skipped.
func NewManager(store Store, history *HistoryStore, collector *metrics.Collector, logger *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("nil session store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		history:   history,
		collector: collector,
		logger:    logger.With(zap.String("component", "session_manager")),
	}, nil
}

// GetOrCreateSession returns the user's active session, creating one when
// none exists.
func (m *Manager) GetOrCreateSession(ctx context.Context, userID string) (*types.Session, error) {
	session, created, err := m.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		if m.collector != nil {
			m.collector.SessionStarted()
		}
		m.logger.Info("session started",
			zap.String("session_id", session.ID),
			zap.String("user_id", userID))
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return m.store.Get(ctx, sessionID)
}

// RecordTurn appends one dialogue turn to the history log. A missing log
// is not an error for the caller; the turn is dropped with a warning so a
// database outage never blocks a live conversation.
func (m *Manager) RecordTurn(ctx context.Context, turn *types.Turn) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordTurn(ctx, turn); err != nil {
		m.logger.Warn("failed to log turn",
			zap.String("session_id", turn.SessionID),
			zap.Error(err))
		return
	}
	if m.collector != nil && turn.Actor == "user" {
		m.collector.RecordTurn(turn.Intent)
	}
}

// CommitRouting updates the session's sticky-routing fields after a
// routing decision and persists it. The router itself stays pure; this is
// the single place session state changes because of routing.
func (m *Manager) CommitRouting(ctx context.Context, session *types.Session, intent, agentName string) error {
	session.CurrentAgent = agentName
	session.LastIntent = intent
	return m.store.Save(ctx, session)
}

// SaveSession persists arbitrary session mutations (agent slot state,
// dialogue state).
func (m *Manager) SaveSession(ctx context.Context, session *types.Session) error {
	return m.store.Save(ctx, session)
}

// EndSession marks a session finished.
func (m *Manager) EndSession(ctx context.Context, sessionID string, status types.SessionStatus) error {
	if err := m.store.End(ctx, sessionID, status); err != nil {
		return err
	}
	if m.collector != nil {
		m.collector.SessionEnded()
	}
	m.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.String("status", string(status)))
	return nil
}

// History returns a session's logged turns, oldest first.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]types.Turn, error) {
	if m.history == nil {
		return nil, nil
	}
	return m.history.History(ctx, sessionID, limit)
}

// Ping checks the health of the composed stores.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.store.Ping(ctx); err != nil {
		return err
	}
	if m.history != nil {
		return m.history.Ping(ctx)
	}
	return nil
}

// Close releases the composed stores.
func (m *Manager) Close() error {
	err := m.store.Close()
	if m.history != nil {
		if herr := m.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}
