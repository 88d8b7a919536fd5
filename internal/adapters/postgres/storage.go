package postgres_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorageAdapter implements the catalog, booking and review storage ports.
type PostgresStorageAdapter struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	now     func() time.Time
}

var (
	_ port.PropertyStoragePort = (*PostgresStorageAdapter)(nil)
	_ port.BookingStoragePort  = (*PostgresStorageAdapter)(nil)
	_ port.ReviewStoragePort   = (*PostgresStorageAdapter)(nil)
)

// NewPostgresStorageAdapter - timeout bounds every call, zero disables it.
func NewPostgresStorageAdapter(pool *pgxpool.Pool, timeout time.Duration) (*PostgresStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresStorageAdapter{pool: pool, timeout: timeout, now: time.Now}, nil
}

func (a *PostgresStorageAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// storageError keeps domain errors as they are and marks everything else
// (network, timeouts, server errors) as an unavailable dependency.
func storageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrBookingConflict,
		domain.ErrInvalidStatusTransition,
		domain.ErrValidation,
		domain.ErrDependencyUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.DependencyError(operation, err)
}

// blockingStatuses lists the statuses that occupy a unit.
func blockingStatuses() []string {
	out := make([]string, 0, 2)
	for _, s := range []domain.BookingStatus{
		domain.BookingStatusPending,
		domain.BookingStatusConfirmed,
		domain.BookingStatusCancelled,
		domain.BookingStatusCompleted,
	} {
		if s.BlocksAvailability() {
			out = append(out, string(s))
		}
	}
	return out
}

func decodeFields(raw []byte) (map[uuid.UUID]domain.FieldValue, error) {
	fields := make(map[uuid.UUID]domain.FieldValue)
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}
