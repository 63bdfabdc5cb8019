package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openvitality/careline/types"
)

// RedisStore persists sessions in Redis with a TTL so abandoned
// conversations expire on their own.
type RedisStore struct {
	client *redis.Client
	config StoreConfig
	logger *zap.Logger
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions, config StoreConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "session_store")),
	}, nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle in tests.
func NewRedisStoreWithClient(client *redis.Client, config StoreConfig, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "session_store")),
	}
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.config.KeyPrefix + "session:" + sessionID
}

func (s *RedisStore) userKey(userID string) string {
	return s.config.KeyPrefix + "user:" + userID
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetOrCreate returns the user's active session or starts a new one.
func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (*types.Session, bool, error) {
	if userID == "" {
		return nil, false, ErrInvalidInput
	}

	id, err := s.client.Get(ctx, s.userKey(userID)).Result()
	if err == nil {
		session, err := s.Get(ctx, id)
		if err == nil && session.Status == types.SessionActive {
			return session, false, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("redis get user index: %w", err)
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
	if err := s.Save(ctx, session); err != nil {
		return nil, false, err
	}
	s.logger.Debug("session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID))
	return session, true, nil
}

// Get retrieves a session by ID.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Save persists a session and refreshes the user index with the same TTL.
func (s *RedisStore) Save(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, s.config.TTL)
	if session.UserID != "" {
		pipe.Set(ctx, s.userKey(session.UserID), session.ID, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// End marks the session finished and drops the user index so the next
// contact starts fresh.
func (s *RedisStore) End(ctx context.Context, sessionID string, status types.SessionStatus) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Status = status
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sessionID), data, s.config.TTL)
	if session.UserID != "" {
		pipe.Del(ctx, s.userKey(session.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis end session: %w", err)
	}
	return nil
}
