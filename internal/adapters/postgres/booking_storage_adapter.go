package postgres_adapter

import (
	"context"
	"errors"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, unit_id, property_id, guest_id, check_in, check_out, status, total_price, created_at, updated_at`

// Serializes writers of one unit until the transaction ends.
const lockUnitQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

const overlapQuery = `
	SELECT id FROM bookings
	WHERE unit_id = $1 AND status = ANY($2) AND check_in < $4 AND $3 < check_out AND id <> $5
	ORDER BY check_in, id
	LIMIT 1`

func (a *PostgresStorageAdapter) GetBookingsByUnit(ctx context.Context, unitID uuid.UUID) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE unit_id = $1 ORDER BY check_in, id`
	return a.queryBookings(ctx, "GetBookingsByUnit", query, unitID)
}

func (a *PostgresStorageAdapter) GetBookingsByProperty(ctx context.Context, propertyID uuid.UUID, checkInRange *domain.DateRange) ([]domain.Booking, error) {
	if checkInRange == nil {
		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE property_id = $1 ORDER BY check_in, id`
		return a.queryBookings(ctx, "GetBookingsByProperty", query, propertyID)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE property_id = $1 AND check_in >= $2 AND check_in < $3
		ORDER BY check_in, id`
	return a.queryBookings(ctx, "GetBookingsByProperty", query, propertyID, checkInRange.Start, checkInRange.End)
}

func (a *PostgresStorageAdapter) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(a.pool.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to get booking", err, port.Fields{
			"component":  "PostgresStorageAdapter",
			"booking_id": bookingID.String(),
		})
		return nil, storageError("get booking", err)
	}
	return b, nil
}

func (a *PostgresStorageAdapter) GetStalePendingBookings(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at, id
		LIMIT $3`
	return a.queryBookings(ctx, "GetStalePendingBookings", query, string(domain.BookingStatusPending), createdBefore, limitArg)
}

// CreateBooking locks the unit, checks for overlapping blocking bookings and inserts in one transaction.
func (a *PostgresStorageAdapter) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "PostgresStorageAdapter",
		"method":     "CreateBooking",
		"booking_id": booking.ID.String(),
		"unit_id":    booking.UnitID.String(),
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return storageError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockUnitQuery, booking.UnitID.String()); err != nil {
		repoLogger.Error("Failed to lock unit", err, nil)
		return storageError("lock unit", err)
	}

	var propertyID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT property_id FROM units WHERE id = $1 AND deleted_at IS NULL`, booking.UnitID).Scan(&propertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUnitNotFound
		}
		repoLogger.Error("Failed to load unit", err, nil)
		return storageError("load unit", err)
	}

	if booking.Status.BlocksAvailability() {
		if err := findOverlap(ctx, tx, booking); err != nil {
			return err
		}
	}

	booking.PropertyID = propertyID
	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		booking.ID, booking.UnitID, booking.PropertyID, booking.GuestID,
		booking.CheckIn, booking.CheckOut, string(booking.Status), booking.TotalPrice,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		repoLogger.Error("Failed to insert booking", err, nil)
		return storageError("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		repoLogger.Error("Failed to commit transaction", err, nil)
		return storageError("commit transaction", err)
	}
	repoLogger.Debug("Booking created", nil)
	return nil
}

// UpdateBookingStatus is a compare-and-set on the status; moving into a blocking
// status repeats the overlap check under the unit lock.
func (a *PostgresStorageAdapter) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, next domain.BookingStatus) (*domain.Booking, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "PostgresStorageAdapter",
		"method":     "UpdateBookingStatus",
		"booking_id": bookingID.String(),
		"from":       string(from),
		"to":         string(next),
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		repoLogger.Error("Failed to begin transaction", err, nil)
		return nil, storageError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var unitID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT unit_id FROM bookings WHERE id = $1`, bookingID).Scan(&unitID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		repoLogger.Error("Failed to load booking", err, nil)
		return nil, storageError("load booking", err)
	}
	if _, err := tx.Exec(ctx, lockUnitQuery, unitID.String()); err != nil {
		repoLogger.Error("Failed to lock unit", err, nil)
		return nil, storageError("lock unit", err)
	}

	current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
	if err != nil {
		repoLogger.Error("Failed to lock booking row", err, nil)
		return nil, storageError("load booking", err)
	}
	if current.Status != from || !from.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: booking is %s, cannot move from %s to %s",
			domain.ErrInvalidStatusTransition, current.Status, from, next)
	}
	if next.BlocksAvailability() {
		if err := findOverlap(ctx, tx, current); err != nil {
			return nil, err
		}
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+bookingColumns,
		bookingID, string(next), a.now().UTC(),
	))
	if err != nil {
		repoLogger.Error("Failed to update booking status", err, nil)
		return nil, storageError("update booking status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		repoLogger.Error("Failed to commit transaction", err, nil)
		return nil, storageError("commit transaction", err)
	}
	repoLogger.Debug("Booking status updated", nil)
	return updated, nil
}

func findOverlap(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	var conflictID uuid.UUID
	err := tx.QueryRow(ctx, overlapQuery,
		booking.UnitID, blockingStatuses(), booking.CheckIn, booking.CheckOut, booking.ID,
	).Scan(&conflictID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return storageError("check overlap", err)
	default:
		return fmt.Errorf("%w: overlaps booking %s", domain.ErrBookingConflict, conflictID)
	}
}

func (a *PostgresStorageAdapter) queryBookings(ctx context.Context, method, query string, args ...interface{}) ([]domain.Booking, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresStorageAdapter",
		"method":    method,
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		repoLogger.Error("Failed to query bookings", err, nil)
		return nil, storageError("query bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageError("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Failed to read bookings", err, nil)
		return nil, storageError("query bookings", err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := row.Scan(
		&b.ID, &b.UnitID, &b.PropertyID, &b.GuestID, &b.CheckIn, &b.CheckOut,
		&status, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	b.CheckIn = domain.TruncateToDay(b.CheckIn)
	b.CheckOut = domain.TruncateToDay(b.CheckOut)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}
