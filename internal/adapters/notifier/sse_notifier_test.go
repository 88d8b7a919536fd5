package notifier

import (
	"context"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/port"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunning(t *testing.T) *SSENotifier {
	t.Helper()
	n := NewSSENotifier(contextkeys.LoggerFromContext(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go n.Run(ctx)
	return n
}

func receive(t *testing.T, ch ClientChannel) string {
	t.Helper()
	select {
	case frame := <-ch:
		return string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return ""
	}
}

func TestSSENotifier_DeliversToEveryStreamOfTheUser(t *testing.T) {
	n := newRunning(t)
	user, other := uuid.New(), uuid.New()
	tab1, tab2 := n.AddClient(user), n.AddClient(user)
	otherTab := n.AddClient(other)

	n.SendMessage(context.Background(), user, port.UserMessage{
		Type:    "booking.confirmed",
		Payload: port.BookingNotice{Status: "confirmed", CheckIn: "2024-03-01"},
	})

	frame := receive(t, tab1)
	assert.Contains(t, frame, "event: booking.confirmed\ndata: {")
	assert.Contains(t, frame, `"check_in":"2024-03-01"`)
	assert.True(t, len(frame) > 2 && frame[len(frame)-2:] == "\n\n")
	assert.Equal(t, frame, receive(t, tab2))

	select {
	case <-otherTab:
		t.Fatal("message leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSENotifier_CancelledRequestStillDelivers(t *testing.T) {
	n := newRunning(t)
	user := uuid.New()
	tab := n.AddClient(user)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.SendMessage(ctx, user, port.UserMessage{Type: "booking.cancelled", Payload: map[string]string{}})

	assert.Contains(t, receive(t, tab), "event: booking.cancelled")
}

func TestSSENotifier_RemoveClient(t *testing.T) {
	n := NewSSENotifier(contextkeys.LoggerFromContext(context.Background()))
	user := uuid.New()
	a, b := n.AddClient(user), n.AddClient(user)
	require.Equal(t, 2, n.clientCount(user))

	n.RemoveClient(user, a)
	assert.Equal(t, 1, n.clientCount(user))
	n.RemoveClient(user, b)
	assert.Equal(t, 0, n.clientCount(user))
	n.RemoveClient(user, b)
}

func TestSSENotifier_SendNeverBlocks(t *testing.T) {
	n := NewSSENotifier(contextkeys.LoggerFromContext(context.Background()))
	user := uuid.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < eventBufferSize*2; i++ {
			n.SendMessage(context.Background(), user, port.UserMessage{Type: "x"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendMessage blocked without a running dispatcher")
	}
}
