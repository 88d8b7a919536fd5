package port

import (
	"context"

	"github.com/google/uuid"
)

// UserMessage - a push message addressed to one user.
type UserMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// BookingNotice is the payload of booking lifecycle messages.
type BookingNotice struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UnitID     uuid.UUID `json:"unit_id"`
	PropertyID uuid.UUID `json:"property_id"`
	Status     string    `json:"status"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
}

// NotifierPort delivers messages to connected clients. Fire-and-forget:
// delivery failures are logged by the implementation, never returned.
type NotifierPort interface {
	SendMessage(ctx context.Context, userID uuid.UUID, message UserMessage)
}
