package port

import (
	"context"

	"github.com/google/uuid"
)

// UnitLockerPort serializes booking writes per unit.
type UnitLockerPort interface {
	// Lock blocks until the unit is owned or ctx is done. The returned func releases it.
	Lock(ctx context.Context, unitID uuid.UUID) (unlock func(), err error)
}
