package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openvitality/careline/types"
)

// turnRecord is the GORM model for one logged dialogue turn.
type turnRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	SessionID  string    `gorm:"index;size:64;not null"`
	Actor      string    `gorm:"size:16;not null"`
	Text       string    `gorm:"type:text"`
	Intent     string    `gorm:"size:64"`
	Confidence float64
	AgentName  string    `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"index"`
}

func (turnRecord) TableName() string { return "dialogue_turns" }

func (r turnRecord) toTurn() types.Turn {
	return types.Turn{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Actor:      r.Actor,
		Text:       r.Text,
		Intent:     r.Intent,
		Confidence: r.Confidence,
		AgentName:  r.AgentName,
		CreatedAt:  r.CreatedAt,
	}
}

// HistoryStore logs dialogue turns to a relational database. The turn log
// is append-only; sessions reference it by ID.
type HistoryStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHistoryStore wraps a GORM handle and migrates the turn table.
func NewHistoryStore(db *gorm.DB, logger *zap.Logger) (*HistoryStore, error) {
	if db == nil {
		return nil, errors.New("nil db handle")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&turnRecord{}); err != nil {
		return nil, fmt.Errorf("migrate dialogue_turns: %w", err)
	}
	return &HistoryStore{
		db:     db,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// RecordTurn appends one turn to the log. A missing ID or timestamp is
// filled in.
func (s *HistoryStore) RecordTurn(ctx context.Context, turn *types.Turn) error {
	if turn == nil || turn.SessionID == "" {
		return ErrInvalidInput
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	record := turnRecord{
		ID:         turn.ID,
		SessionID:  turn.SessionID,
		Actor:      turn.Actor,
		Text:       turn.Text,
		Intent:     turn.Intent,
		Confidence: turn.Confidence,
		AgentName:  turn.AgentName,
		CreatedAt:  turn.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// History returns a session's turns, oldest first. limit <= 0 returns all.
func (s *HistoryStore) History(ctx context.Context, sessionID string, limit int) ([]types.Turn, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	query := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []turnRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}

	turns := make([]types.Turn, 0, len(records))
	for _, r := range records {
		turns = append(turns, r.toTurn())
	}
	return turns, nil
}

// Ping checks database connectivity.
func (s *HistoryStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *HistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
