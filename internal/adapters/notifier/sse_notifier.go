package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/port"
	"sync"

	"github.com/google/uuid"
)

const (
	eventBufferSize  = 100
	clientBufferSize = 16
)

// ClientChannel carries ready-to-write SSE frames to one open stream.
type ClientChannel chan []byte

type queuedMessage struct {
	ctx     context.Context
	userID  uuid.UUID
	message port.UserMessage
}

// SSENotifier implements port.NotifierPort over server-sent events.
// One user may hold several streams (browser tabs).
type SSENotifier struct {
	clients map[uuid.UUID][]ClientChannel
	mu      sync.RWMutex

	eventChan chan queuedMessage
	logger    port.LoggerPort
}

var _ port.NotifierPort = (*SSENotifier)(nil)

func NewSSENotifier(baseLogger port.LoggerPort) *SSENotifier {
	return &SSENotifier{
		clients:   make(map[uuid.UUID][]ClientChannel),
		eventChan: make(chan queuedMessage, eventBufferSize),
		logger:    baseLogger.WithFields(port.Fields{"component": "SSENotifier"}),
	}
}

// Run dispatches queued messages until ctx is cancelled.
func (n *SSENotifier) Run(ctx context.Context) {
	n.logger.Debug("Notifier dispatcher started", nil)
	for {
		select {
		case <-ctx.Done():
			n.logger.Debug("Notifier dispatcher stopped", nil)
			return
		case queued := <-n.eventChan:
			n.dispatch(queued)
		}
	}
}

func (n *SSENotifier) dispatch(queued queuedMessage) {
	logger := contextkeys.LoggerFromContext(queued.ctx).WithFields(port.Fields{
		"component":  "SSENotifier.dispatcher",
		"event_type": queued.message.Type,
		"user_id":    queued.userID.String(),
	})

	frame, err := formatFrame(queued.message)
	if err != nil {
		logger.Error("Failed to marshal message", err, nil)
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	channels := n.clients[queued.userID]
	if len(channels) == 0 {
		logger.Debug("No active clients for user, message dropped", nil)
		return
	}
	for _, ch := range channels {
		select {
		case ch <- frame:
		default:
			logger.Warn("Client channel is full, skipping", nil)
		}
	}
}

func formatFrame(message port.UserMessage) ([]byte, error) {
	data, err := json.Marshal(message.Payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", message.Type, data)), nil
}

// SendMessage queues the message and returns immediately. A full queue drops it.
func (n *SSENotifier) SendMessage(ctx context.Context, userID uuid.UUID, message port.UserMessage) {
	// the request context may be cancelled before dispatch; keep only its values
	queued := queuedMessage{ctx: context.WithoutCancel(ctx), userID: userID, message: message}
	select {
	case n.eventChan <- queued:
	default:
		contextkeys.LoggerFromContext(ctx).Warn("Notification queue is full, message dropped", port.Fields{
			"user_id":    userID.String(),
			"event_type": message.Type,
		})
	}
}

// AddClient registers a new stream of the user.
func (n *SSENotifier) AddClient(userID uuid.UUID) ClientChannel {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(ClientChannel, clientBufferSize)
	n.clients[userID] = append(n.clients[userID], ch)

	n.logger.Info("Client connected", port.Fields{
		"user_id":          userID.String(),
		"user_connections": len(n.clients[userID]),
	})
	return ch
}

// RemoveClient forgets a closed stream.
func (n *SSENotifier) RemoveClient(userID uuid.UUID, ch ClientChannel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	channels := n.clients[userID]
	kept := channels[:0]
	for _, c := range channels {
		if c != ch {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		delete(n.clients, userID)
		n.logger.Debug("Last client disconnected, user removed", port.Fields{"user_id": userID.String()})
		return
	}
	n.clients[userID] = kept
	n.logger.Info("Client disconnected", port.Fields{
		"user_id":               userID.String(),
		"remaining_connections": len(kept),
	})
}

func (n *SSENotifier) clientCount(userID uuid.UUID) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients[userID])
}
