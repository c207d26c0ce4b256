package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/chatrelay/internal/domain"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func receive(t *testing.T, conn *Connection) domain.Event {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "send channel closed")
		var ev domain.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return domain.Event{}
}

func TestPublishReachesSessionSubscribers(t *testing.T) {
	h := newRunningHub(t)

	a := h.NewConnection(nil, "s1", "u1")
	b := h.NewConnection(nil, "s2", "u1")
	h.Register(a)
	h.Register(b)

	h.Publish(domain.Event{
		Type:      domain.EventTypeMessageAppended,
		SessionID: "s1",
		Message:   &domain.ChatMessage{ID: "m1", SessionID: "s1", Content: "hi", IsUserMessage: true},
	})

	ev := receive(t, a)
	assert.Equal(t, domain.EventTypeMessageAppended, ev.Type)
	assert.Equal(t, "hi", ev.Message.Content)
	assert.NotZero(t, ev.Ts)

	select {
	case <-b.Send:
		t.Fatalf("subscriber of another session received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := newRunningHub(t)

	conn := h.NewConnection(nil, "s1", "u1")
	h.Register(conn)
	assert.Equal(t, 1, h.SubscriberCount("s1"))

	h.Unregister(conn)
	_, ok := <-conn.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.SubscriberCount("s1"))
}

func TestRegisterAfterShutdown(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	conn := h.NewConnection(nil, "s1", "u1")
	h.Register(conn)
	_, ok := <-conn.Send
	assert.False(t, ok)
	h.Unregister(conn)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := newRunningHub(t)
	h.Publish(domain.Event{Type: domain.EventTypeSessionClosed, SessionID: "nobody"})
	assert.Equal(t, 0, h.SubscriberCount("nobody"))
}

func TestSlowSubscriberIsDroppedOnce(t *testing.T) {
	h := newRunningHub(t)

	conn := h.NewConnection(nil, "s1", "u1")
	h.Register(conn)

	for i := 0; i < 100; i++ {
		h.Publish(domain.Event{Type: domain.EventTypeMessageAppended, SessionID: "s1"})
	}

	require.Eventually(t, func() bool {
		return h.SubscriberCount("s1") == 0
	}, time.Second, 10*time.Millisecond)
	assert.True(t, conn.dropping.Load())

	received := 0
	for range conn.Send {
		received++
	}
	assert.LessOrEqual(t, received, cap(conn.Send))
	assert.Positive(t, received)
}
