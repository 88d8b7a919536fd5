package domain

import (
	"time"

	"github.com/google/uuid"
)

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Property - catalog entry that owns bookable units.
type Property struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	PropertyTypeID uuid.UUID
	Title          string
	Address        string
	Location       Coordinate
	Fields         map[uuid.UUID]FieldValue
	AmenityIDs     []uuid.UUID
	ServiceIDs     []uuid.UUID
	Rating         float64
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

func (p *Property) IsActive() bool { return p.DeletedAt == nil }

func (p *Property) HasAmenity(id uuid.UUID) bool { return containsID(p.AmenityIDs, id) }

func (p *Property) HasService(id uuid.UUID) bool { return containsID(p.ServiceIDs, id) }

// Unit - bookable part of a property (room, apartment, bed).
type Unit struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	Name       string
	Fields     map[uuid.UUID]FieldValue
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

func (u *Unit) IsActive() bool { return u.DeletedAt == nil }

// Review - guest rating of a property.
type Review struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	Rating     float64
	CreatedAt  time.Time
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
