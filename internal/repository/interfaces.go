package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
)

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	// Create inserts a confirmed booking. A unique violation on the slot key
	// returns domain.ErrSlotConflict.
	Create(ctx context.Context, booking *domain.Booking) error
	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// ExistsConfirmed reports whether a confirmed booking holds the slot instant
	ExistsConfirmed(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error)
}

// SlotRepository defines the interface for persisted slot data access
type SlotRepository interface {
	// GetByID retrieves a persisted slot by ID
	GetByID(ctx context.Context, id string) (*domain.PersistedSlot, error)
	// IsAvailable reads the slot's availability flag
	IsAvailable(ctx context.Context, id string) (bool, error)
	// MarkUnavailable flips the availability flag from true to false
	MarkUnavailable(ctx context.Context, id string) error
}

// CatalogRepository defines the interface for venue, sport and pricing reference data
type CatalogRepository interface {
	// GetVenue retrieves a venue by ID
	GetVenue(ctx context.Context, id string) (*domain.Venue, error)
	// GetSport retrieves a sport by ID
	GetSport(ctx context.Context, id string) (*domain.Sport, error)
	// ListPricingRules returns the schedule template for a venue
	ListPricingRules(ctx context.Context, venueID string) ([]domain.PricingRule, error)
}
