package postgres_adapter

import (
	"context"
	"errors"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const propertyColumns = `
	id, owner_id, property_type_id, title, address, latitude, longitude,
	fields, amenity_ids::text[], service_ids::text[], rating, created_at, deleted_at`

const unitColumns = `id, property_id, name, fields, created_at, deleted_at`

func (a *PostgresStorageAdapter) GetActiveProperties(ctx context.Context) ([]domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE deleted_at IS NULL ORDER BY id`
	return a.queryProperties(ctx, "GetActiveProperties", query)
}

// GetPropertiesInBoundingBox pre-filters by coordinates; a box with MinLongitude > MaxLongitude wraps the antimeridian.
func (a *PostgresStorageAdapter) GetPropertiesInBoundingBox(ctx context.Context, box port.BoundingBox) ([]domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE deleted_at IS NULL AND latitude BETWEEN $1 AND $2 AND ` + longitudeClause(box) + `
		ORDER BY id`
	return a.queryProperties(ctx, "GetPropertiesInBoundingBox", query,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude)
}

func longitudeClause(box port.BoundingBox) string {
	if box.MinLongitude <= box.MaxLongitude {
		return `longitude BETWEEN $3 AND $4`
	}
	return `(longitude >= $3 OR longitude <= $4)`
}

func (a *PostgresStorageAdapter) GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresStorageAdapter",
		"method":      "GetPropertyByID",
		"property_id": propertyID.String(),
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(a.pool.QueryRow(ctx, query, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPropertyNotFound
		}
		repoLogger.Error("Failed to get property", err, nil)
		return nil, storageError("get property", err)
	}
	return p, nil
}

func (a *PostgresStorageAdapter) GetUnitsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Unit, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PostgresStorageAdapter",
		"method":      "GetUnitsByProperty",
		"property_id": propertyID.String(),
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + unitColumns + ` FROM units WHERE property_id = $1 AND deleted_at IS NULL ORDER BY id`
	rows, err := a.pool.Query(ctx, query, propertyID)
	if err != nil {
		repoLogger.Error("Failed to query units", err, nil)
		return nil, storageError("get units", err)
	}
	defer rows.Close()

	units := make([]domain.Unit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, storageError("scan unit", err)
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Failed to read units", err, nil)
		return nil, storageError("get units", err)
	}
	return units, nil
}

// GetUnitByID returns deleted units too; callers decide what inactive means.
func (a *PostgresStorageAdapter) GetUnitByID(ctx context.Context, unitID uuid.UUID) (*domain.Unit, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`
	u, err := scanUnit(a.pool.QueryRow(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to get unit", err, port.Fields{
			"component": "PostgresStorageAdapter",
			"unit_id":   unitID.String(),
		})
		return nil, storageError("get unit", err)
	}
	return u, nil
}

func (a *PostgresStorageAdapter) queryProperties(ctx context.Context, method, query string, args ...interface{}) ([]domain.Property, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresStorageAdapter",
		"method":    method,
	})
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		repoLogger.Error("Failed to query properties", err, nil)
		return nil, storageError("query properties", err)
	}
	defer rows.Close()

	properties := make([]domain.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, storageError("scan property", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Failed to read properties", err, nil)
		return nil, storageError("query properties", err)
	}

	repoLogger.Debug("Properties loaded", port.Fields{"count": len(properties)})
	return properties, nil
}

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var (
		p                      domain.Property
		fieldsJSON             []byte
		amenityIDs, serviceIDs []string
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.PropertyTypeID, &p.Title, &p.Address,
		&p.Location.Latitude, &p.Location.Longitude,
		&fieldsJSON, &amenityIDs, &serviceIDs, &p.Rating, &p.CreatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Fields, err = decodeFields(fieldsJSON); err != nil {
		return nil, err
	}
	if p.AmenityIDs, err = parseIDs(amenityIDs); err != nil {
		return nil, err
	}
	if p.ServiceIDs, err = parseIDs(serviceIDs); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func scanUnit(row pgx.Row) (*domain.Unit, error) {
	var (
		u          domain.Unit
		fieldsJSON []byte
	)
	if err := row.Scan(&u.ID, &u.PropertyID, &u.Name, &fieldsJSON, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	fields, err := decodeFields(fieldsJSON)
	if err != nil {
		return nil, err
	}
	u.Fields = fields
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
