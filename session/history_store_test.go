package session

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openvitality/careline/types"
)

func setupHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := NewHistoryStore(db, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestHistoryStore_RecordAndQuery(t *testing.T) {
	store := setupHistoryStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	turns := []*types.Turn{
		{SessionID: "s-1", Actor: "user", Text: "I have a fever", Intent: "symptom_report", Confidence: 0.9, CreatedAt: base},
		{SessionID: "s-1", Actor: "assistant", Text: "How long have you had it?", AgentName: "symptom", CreatedAt: base.Add(time.Second)},
		{SessionID: "s-2", Actor: "user", Text: "billing question", Intent: "billing", Confidence: 0.9, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, turn := range turns {
		require.NoError(t, store.RecordTurn(ctx, turn))
		assert.NotEmpty(t, turn.ID)
	}

	history, err := store.History(ctx, "s-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Actor)
	assert.Equal(t, "symptom_report", history[0].Intent)
	assert.Equal(t, "assistant", history[1].Actor)
	assert.Equal(t, "symptom", history[1].AgentName)
}

func TestHistoryStore_Limit(t *testing.T) {
	store := setupHistoryStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordTurn(ctx, &types.Turn{
			SessionID: "s-1",
			Actor:     "user",
			Text:      "turn",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := store.History(ctx, "s-1", 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestHistoryStore_EmptySession(t *testing.T) {
	store := setupHistoryStore(t)
	defer store.Close()

	history, err := store.History(context.Background(), "never-seen", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryStore_InvalidInput(t *testing.T) {
	store := setupHistoryStore(t)
	defer store.Close()

	ctx := context.Background()
	assert.ErrorIs(t, store.RecordTurn(ctx, nil), ErrInvalidInput)
	assert.ErrorIs(t, store.RecordTurn(ctx, &types.Turn{Actor: "user"}), ErrInvalidInput)

	_, err := store.History(ctx, "", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHistoryStore_Ping(t *testing.T) {
	store := setupHistoryStore(t)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}
