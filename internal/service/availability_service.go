package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/feed"
	"github.com/prohmpiriya/sport-slots-booker/internal/repository"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// AvailabilityService answers whether a slot can still be booked and streams
// changes. Answers are advisory; only the commit is authoritative.
type AvailabilityService interface {
	// IsBooked reports whether a confirmed booking holds the slot instant
	IsBooked(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error)

	// IsAvailable reads a persisted slot's flag
	IsAvailable(ctx context.Context, slotID string) (bool, error)

	// CheckSlot answers for either kind of slot
	CheckSlot(ctx context.Context, slot *domain.Slot) (bool, error)

	// Subscribe streams availability events for a venue and sport
	Subscribe(venueID, sportID string) *feed.Subscription
}

type availabilityService struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
	hub         *feed.Hub
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	hub *feed.Hub,
) AvailabilityService {
	return &availabilityService{
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		hub:         hub,
	}
}

func (s *availabilityService) IsBooked(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.is_booked")
	defer span.End()

	span.SetAttributes(
		attribute.String("venue_id", venueID),
		attribute.String("sport_id", sportID),
	)

	booked, err := s.bookingRepo.ExistsConfirmed(ctx, venueID, sportID, slotTime)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return booked, nil
}

func (s *availabilityService) IsAvailable(ctx context.Context, slotID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.is_available")
	defer span.End()

	span.SetAttributes(attribute.String("slot_id", slotID))

	available, err := s.slotRepo.IsAvailable(ctx, slotID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return available, nil
}

// CheckSlot reads the flag of a persisted slot and the booking table for a
// virtual one
func (s *availabilityService) CheckSlot(ctx context.Context, slot *domain.Slot) (bool, error) {
	if slot.IsPersisted() {
		return s.IsAvailable(ctx, slot.ID)
	}
	booked, err := s.IsBooked(ctx, slot.VenueID, slot.SportID, slot.SlotTime)
	if err != nil {
		return false, err
	}
	return !booked, nil
}

func (s *availabilityService) Subscribe(venueID, sportID string) *feed.Subscription {
	return s.hub.Subscribe(venueID, sportID)
}
