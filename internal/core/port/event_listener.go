package port

import "context"

// EventListenerPort - incoming adapter started by the application.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
