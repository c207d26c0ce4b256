package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/chatrelay/internal/adapter/llm"
	"github.com/xiaot623/chatrelay/internal/auth"
	"github.com/xiaot623/chatrelay/internal/domain"
	store "github.com/xiaot623/chatrelay/internal/repository"
	"github.com/xiaot623/chatrelay/policy"
	"github.com/xiaot623/chatrelay/tests/helpers"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc     *Service
	db      *store.SQLStore
	gateway *llm.MockClient
	events  *recorder
}

func newFixture(t *testing.T, policyName string) *fixture {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	gateway := llm.NewMockClient()
	engine, err := policy.Load(context.Background(), policyName, "")
	require.NoError(t, err)
	events := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(db, gateway, engine, events, auth.NewTokens("test-secret", time.Hour), logger)
	return &fixture{svc: svc, db: db, gateway: gateway, events: events}
}

func TestSendMessageRecordsBothTurns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	user := helpers.CreateUser(t, f.db, "a@example.com")
	f.gateway.WithReply("Hello!")

	session, err := f.svc.StartSession(ctx, user.ID)
	require.NoError(t, err)

	reply, err := f.svc.SendMessage(ctx, user.ID, session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)

	history, err := f.svc.History(ctx, user.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.True(t, history[0].IsUserMessage)
	assert.Equal(t, "hi", history[0].Content)
	assert.False(t, history[1].IsUserMessage)
	assert.Equal(t, "Hello!", history[1].Content)
	assert.Equal(t, user.ID, history[1].SenderID)
	assert.False(t, history[1].Timestamp.Before(history[0].Timestamp))

	assert.Equal(t, []string{"hi"}, f.gateway.Prompts())
	assert.Equal(t, []domain.EventType{domain.EventTypeMessageAppended, domain.EventTypeMessageAppended}, f.events.types())
}

func TestSendMessageGatewayFailureRecordsErrorTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	user := helpers.CreateUser(t, f.db, "a@example.com")
	f.gateway.WithFailure(500, "boom")

	session, err := f.svc.StartSession(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user.ID, session.ID, "x")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindCompletion))

	history, err := f.svc.History(ctx, user.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "x", history[0].Content)
	assert.False(t, history[1].IsUserMessage)
	assert.Equal(t, "Mock API Error: boom", history[1].Content)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	user := helpers.CreateUser(t, f.db, "a@example.com")

	tests := []struct {
		name      string
		userID    string
		sessionID string
		prompt    string
		kind      domain.ErrorKind
	}{
		{"missing prompt", user.ID, uuid.NewString(), "", domain.KindValidation},
		{"missing session", user.ID, "", "hi", domain.KindValidation},
		{"bad user id", "not-a-uuid", uuid.NewString(), "hi", domain.KindInvalidIdentifier},
		{"bad session id", user.ID, "nope", "hi", domain.KindInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(ctx, tt.userID, tt.sessionID, tt.prompt)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
	assert.Empty(t, f.gateway.Prompts())
}

func TestSendMessageIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, "open")
	user := helpers.CreateUser(t, f.db, "a@example.com")
	session, err := f.svc.StartSession(context.Background(), user.ID)
	require.NoError(t, err)

	gateway := &cancelAwareGateway{}
	f.svc.gateway = gateway

	ctx, cancel := context.WithCancel(context.Background())
	gateway.onCall = cancel

	reply, err := f.svc.SendMessage(ctx, user.ID, session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "done", reply)

	count, err := f.db.CountMessages(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

type cancelAwareGateway struct {
	onCall func()
}

func (g *cancelAwareGateway) Name() string { return "Test" }

func (g *cancelAwareGateway) Complete(ctx context.Context, prompt string) (string, error) {
	g.onCall()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "done", nil
}

func TestOwnerPolicyHidesForeignSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "owner")
	alice := helpers.CreateUser(t, f.db, "alice@example.com")
	bob := helpers.CreateUser(t, f.db, "bob@example.com")

	session, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.History(ctx, bob.ID, session.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = f.svc.SendMessage(ctx, bob.ID, session.ID, "hi")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.Empty(t, f.gateway.Prompts())

	_, err = f.svc.History(ctx, alice.ID, uuid.NewString())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestOpenPolicyAllowsAnyReader(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	alice := helpers.CreateUser(t, f.db, "alice@example.com")
	bob := helpers.CreateUser(t, f.db, "bob@example.com")

	session, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, alice.ID, session.ID, "hi")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, bob.ID, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestHistoryOfUnknownSessionIsEmpty(t *testing.T) {
	f := newFixture(t, "open")
	user := helpers.CreateUser(t, f.db, "a@example.com")

	history, err := f.svc.History(context.Background(), user.ID, uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = f.svc.History(context.Background(), user.ID, "bad")
	assert.True(t, domain.IsKind(err, domain.KindInvalidIdentifier))
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	sessionID := uuid.NewString()

	contents := []string{"one", "two", "three", "four"}
	for i, c := range contents {
		_, err := f.svc.Append(ctx, sessionID, "sender", c, i%2 == 0)
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, uuid.NewString(), sessionID)
	require.NoError(t, err)
	require.Len(t, history, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, history[i].Content)
		if i > 0 {
			assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
		}
	}

	_, err = f.svc.Append(ctx, sessionID, "sender", "", true)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCloseSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	alice := helpers.CreateUser(t, f.db, "alice@example.com")
	bob := helpers.CreateUser(t, f.db, "bob@example.com")

	session, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = f.svc.SendMessage(ctx, alice.ID, session.ID, "hi")
		require.NoError(t, err)
	}

	_, err = f.svc.CloseSession(ctx, bob.ID, session.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	closed, err := f.svc.CloseSession(ctx, alice.ID, session.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.Summary)
	assert.Equal(t, "Conversation ended with 4 messages", *closed.Summary)

	stored, err := f.db.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Closed())

	_, err = f.svc.CloseSession(ctx, alice.ID, "bad")
	assert.True(t, domain.IsKind(err, domain.KindInvalidIdentifier))
	assert.Contains(t, f.events.types(), domain.EventTypeSessionClosed)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Conversation ended with 0 messages", Summary(0))
	assert.Equal(t, "Conversation ended with 1 messages", Summary(1))
}

func TestListSessionsOnlyOwn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	alice := helpers.CreateUser(t, f.db, "alice@example.com")
	bob := helpers.CreateUser(t, f.db, "bob@example.com")

	first, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)
	second, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.StartSession(ctx, bob.ID)
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
	for _, s := range sessions {
		assert.Equal(t, alice.ID, s.UserID)
		assert.Equal(t, domain.DefaultSessionName, s.Name)
	}
}

func TestRenameSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	alice := helpers.CreateUser(t, f.db, "alice@example.com")
	bob := helpers.CreateUser(t, f.db, "bob@example.com")

	session, err := f.svc.StartSession(ctx, alice.ID)
	require.NoError(t, err)

	renamed, err := f.svc.RenameSession(ctx, alice.ID, session.ID, "Trip plans")
	require.NoError(t, err)
	assert.Equal(t, "Trip plans", renamed.Name)

	_, err = f.svc.RenameSession(ctx, bob.ID, session.ID, "Mine now")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = f.svc.RenameSession(ctx, alice.ID, session.ID, "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestSignupSigninAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")

	user, err := f.svc.Signup(ctx, domain.SignupRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = f.svc.Signup(ctx, domain.SignupRequest{Username: "alice2", Email: "alice@example.com", Password: "password123"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	_, err = f.svc.Signin(ctx, domain.SigninRequest{Email: "alice@example.com", Password: "wrong-password"})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	_, err = f.svc.Signin(ctx, domain.SigninRequest{Email: "nobody@example.com", Password: "password123"})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	token, err := f.svc.Signin(ctx, domain.SigninRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	got, err := f.svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	orphan, err := auth.NewTokens("test-secret", time.Hour).Issue(uuid.NewString())
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, orphan)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

// flakyStore fails the failOn-th CreateMessage call and every later one.
type flakyStore struct {
	*store.SQLStore
	mu     sync.Mutex
	calls  int
	failOn int
}

func (s *flakyStore) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls >= s.failOn
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.SQLStore.CreateMessage(ctx, message)
}

func newFlakyFixture(t *testing.T, failOn int) (*fixture, *flakyStore) {
	t.Helper()
	f := newFixture(t, "open")
	flaky := &flakyStore{SQLStore: f.db, failOn: failOn}
	f.svc.store = flaky
	return f, flaky
}

func TestSendMessageUserTurnWriteFails(t *testing.T) {
	ctx := context.Background()
	f, _ := newFlakyFixture(t, 1)
	user := helpers.CreateUser(t, f.db, "a@example.com")
	session, err := f.svc.StartSession(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user.ID, session.ID, "hi")
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Empty(t, f.gateway.Prompts())

	count, err := f.db.CountMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSendMessageReplyWriteFailsLeavesUserTurn(t *testing.T) {
	ctx := context.Background()
	f, _ := newFlakyFixture(t, 2)
	user := helpers.CreateUser(t, f.db, "a@example.com")
	f.gateway.WithReply("Hello!")
	session, err := f.svc.StartSession(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user.ID, session.ID, "hi")
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Equal(t, []string{"hi"}, f.gateway.Prompts())

	history, err := f.db.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsUserMessage)
	assert.Equal(t, "hi", history[0].Content)
}

func TestSendMessageErrorTurnWriteFailsStillReportsCompletion(t *testing.T) {
	ctx := context.Background()
	f, _ := newFlakyFixture(t, 2)
	user := helpers.CreateUser(t, f.db, "a@example.com")
	f.gateway.WithFailure(503, "overloaded")
	session, err := f.svc.StartSession(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user.ID, session.ID, "hi")
	require.Error(t, err)
	assert.Equal(t, domain.KindCompletion, domain.KindOf(err))

	count, err := f.db.CountMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type brokenPolicy struct{}

func (brokenPolicy) Evaluate(ctx context.Context, input policy.Input) (domain.Decision, error) {
	return domain.DecisionDeny, errors.New("rego: undefined ref")
}

func TestAuthorizePolicyFailureIsTyped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open")
	f.svc.policy = brokenPolicy{}
	user := helpers.CreateUser(t, f.db, "a@example.com")

	_, err := f.svc.History(ctx, user.ID, uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))

	_, err = f.svc.SendMessage(ctx, user.ID, uuid.NewString(), "hi")
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Empty(t, f.gateway.Prompts())
}
