package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"search-analytics-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

type seedFile struct {
	Properties []seedProperty `json:"properties"`
	Units      []seedUnit     `json:"units"`
	Bookings   []seedBooking  `json:"bookings"`
	Reviews    []seedReview   `json:"reviews"`
}

type seedProperty struct {
	ID             uuid.UUID                       `json:"id"`
	OwnerID        uuid.UUID                       `json:"owner_id"`
	PropertyTypeID uuid.UUID                       `json:"property_type_id"`
	Title          string                          `json:"title"`
	Address        string                          `json:"address"`
	Latitude       float64                         `json:"latitude"`
	Longitude      float64                         `json:"longitude"`
	Fields         map[uuid.UUID]domain.FieldValue `json:"fields"`
	AmenityIDs     []uuid.UUID                     `json:"amenity_ids"`
	ServiceIDs     []uuid.UUID                     `json:"service_ids"`
	Rating         float64                         `json:"rating"`
	CreatedAt      time.Time                       `json:"created_at"`
	DeletedAt      *time.Time                      `json:"deleted_at,omitempty"`
}

type seedUnit struct {
	ID         uuid.UUID                       `json:"id"`
	PropertyID uuid.UUID                       `json:"property_id"`
	Name       string                          `json:"name"`
	Fields     map[uuid.UUID]domain.FieldValue `json:"fields"`
	CreatedAt  time.Time                       `json:"created_at"`
}

type seedBooking struct {
	ID         uuid.UUID            `json:"id"`
	UnitID     uuid.UUID            `json:"unit_id"`
	GuestID    uuid.UUID            `json:"guest_id"`
	CheckIn    string               `json:"check_in"`
	CheckOut   string               `json:"check_out"`
	Status     domain.BookingStatus `json:"status"`
	TotalPrice float64              `json:"total_price"`
	CreatedAt  time.Time            `json:"created_at"`
}

type seedReview struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	GuestID    uuid.UUID `json:"guest_id"`
	Rating     float64   `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoadSeedFile fills the storage from a JSON fixture. Referential integrity is checked:
// units need a property, bookings need a unit.
func (s *Storage) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.LoadSeed(data)
}

func (s *Storage) LoadSeed(data []byte) error {
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, p := range seed.Properties {
		location := domain.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
		if !location.Valid() {
			return fmt.Errorf("property %s: invalid coordinate %v", p.ID, location)
		}
		s.AddProperty(domain.Property{
			ID:             p.ID,
			OwnerID:        p.OwnerID,
			PropertyTypeID: p.PropertyTypeID,
			Title:          p.Title,
			Address:        p.Address,
			Location:       location,
			Fields:         p.Fields,
			AmenityIDs:     p.AmenityIDs,
			ServiceIDs:     p.ServiceIDs,
			Rating:         p.Rating,
			CreatedAt:      p.CreatedAt,
			DeletedAt:      p.DeletedAt,
		})
	}

	for _, u := range seed.Units {
		err := s.AddUnit(domain.Unit{ID: u.ID, PropertyID: u.PropertyID, Name: u.Name, Fields: u.Fields, CreatedAt: u.CreatedAt})
		if err != nil {
			return err
		}
	}

	for _, b := range seed.Bookings {
		stay, err := domain.ParseDateRange(b.CheckIn, b.CheckOut)
		if err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if err := stay.Validate(); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if !b.Status.Valid() {
			return fmt.Errorf("booking %s: unknown status %q", b.ID, b.Status)
		}
		err = s.AddBooking(domain.Booking{
			ID:         b.ID,
			UnitID:     b.UnitID,
			GuestID:    b.GuestID,
			CheckIn:    stay.Start,
			CheckOut:   stay.End,
			Status:     b.Status,
			TotalPrice: b.TotalPrice,
			CreatedAt:  b.CreatedAt,
			UpdatedAt:  b.CreatedAt,
		})
		if err != nil {
			return err
		}
	}

	for _, r := range seed.Reviews {
		err := s.AddReview(domain.Review{ID: r.ID, PropertyID: r.PropertyID, GuestID: r.GuestID, Rating: r.Rating, CreatedAt: r.CreatedAt})
		if err != nil {
			return err
		}
	}
	return nil
}
