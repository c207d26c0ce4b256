package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/chatrelay/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreUsers(t *testing.T) {
	testUsers(t, newTestStore(t))
}

func TestSQLiteStoreSessions(t *testing.T) {
	testSessions(t, newTestStore(t))
}

func TestSQLiteStoreMessages(t *testing.T) {
	testMessages(t, newTestStore(t))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: dialect{numbered: true}}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	s = &SQLStore{dialect: dialect{}}
	assert.Equal(t, "x = ?", s.rebind("x = ?"))
}

// The helpers below run against every dialect.

func testUsers(t *testing.T, store Store) {
	ctx := context.Background()

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Email)

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	dup := *user
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, store.CreateUser(ctx, &dup), ErrDuplicate)

	missing, err := store.GetUser(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testSessions(t *testing.T, store Store) {
	ctx := context.Background()
	owner, other := uuid.NewString(), uuid.NewString()
	base := time.Now().UTC()

	var ids []string
	for i := 0; i < 3; i++ {
		session := &domain.ChatSession{
			ID:        uuid.NewString(),
			UserID:    owner,
			Name:      domain.DefaultSessionName,
			StartTime: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CreateSession(ctx, session))
		ids = append(ids, session.ID)
	}
	require.NoError(t, store.CreateSession(ctx, &domain.ChatSession{
		ID: uuid.NewString(), UserID: other, Name: domain.DefaultSessionName, StartTime: base,
	}))

	sessions, err := store.ListSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{sessions[0].ID, sessions[1].ID, sessions[2].ID})
	for _, s := range sessions {
		assert.Equal(t, owner, s.UserID)
		assert.Nil(t, s.EndTime)
		assert.Nil(t, s.Summary)
	}

	none, err := store.ListSessions(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, none)

	// Closing someone else's session matches nothing.
	closed, err := store.CloseSession(ctx, other, ids[0], time.Now().UTC(), "x")
	require.NoError(t, err)
	assert.Nil(t, closed)

	end := time.Now().UTC()
	closed, err = store.CloseSession(ctx, owner, ids[0], end, "Conversation ended with 0 messages")
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.Summary)
	assert.WithinDuration(t, end, *closed.EndTime, time.Millisecond)
	assert.Equal(t, "Conversation ended with 0 messages", *closed.Summary)

	renamed, err := store.RenameSession(ctx, owner, ids[1], "Trip planning")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, "Trip planning", renamed.Name)

	renamed, err = store.RenameSession(ctx, other, ids[1], "Hijack")
	require.NoError(t, err)
	assert.Nil(t, renamed)
}

func testMessages(t *testing.T, store Store) {
	ctx := context.Background()
	sessionID, sender := uuid.NewString(), uuid.NewString()
	ts := time.Now().UTC()

	for i := 0; i < 4; i++ {
		msg := &domain.ChatMessage{
			ID:            uuid.NewString(),
			SessionID:     sessionID,
			SenderID:      sender,
			Timestamp:     ts,
			IsUserMessage: i%2 == 0,
			Content:       fmt.Sprintf("turn %d", i),
		}
		require.NoError(t, store.CreateMessage(ctx, msg))
	}
	// Unrelated session.
	require.NoError(t, store.CreateMessage(ctx, &domain.ChatMessage{
		ID: uuid.NewString(), SessionID: uuid.NewString(), SenderID: sender, Timestamp: ts, IsUserMessage: true, Content: "elsewhere",
	}))

	messages, err := store.GetMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i, m := range messages {
		assert.Equal(t, fmt.Sprintf("turn %d", i), m.Content)
		assert.Equal(t, i%2 == 0, m.IsUserMessage)
	}

	n, err := store.CountMessages(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	empty, err := store.GetMessages(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
