package postgres_adapter

import (
	"context"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

func (a *PostgresStorageAdapter) GetReviewsByProperty(ctx context.Context, propertyID uuid.UUID, createdRange domain.DateRange) ([]domain.Review, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresStorageAdapter",
		"method":      "GetReviewsByProperty",
		"property_id": propertyID.String(),
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, property_id, guest_id, rating, created_at
		FROM reviews
		WHERE property_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY id`
	rows, err := a.pool.Query(ctx, query, propertyID, createdRange.Start, createdRange.End)
	if err != nil {
		repoLogger.Error("Failed to query reviews", err, nil)
		return nil, storageError("query reviews", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.PropertyID, &r.GuestID, &r.Rating, &r.CreatedAt); err != nil {
			return nil, storageError("scan review", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Failed to read reviews", err, nil)
		return nil, storageError("query reviews", err)
	}
	return reviews, nil
}
