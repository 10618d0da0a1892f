package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotEventType names a change on the availability feed
type SlotEventType string

const (
	SlotEventBookingConfirmed    SlotEventType = "booking.confirmed"
	SlotEventAvailabilityChanged SlotEventType = "slot.availability_changed"
)

// SlotEvent is pushed to feed subscribers whenever a slot stops being bookable
type SlotEvent struct {
	ID         string        `json:"id"`
	Type       SlotEventType `json:"type"`
	VenueID    string        `json:"venue_id"`
	SportID    string        `json:"sport_id"`
	SlotID     string        `json:"slot_id,omitempty"`
	SlotRef    string        `json:"slot_ref,omitempty"`
	SlotTime   time.Time     `json:"slot_time"`
	Available  bool          `json:"available"`
	BookingID  string        `json:"booking_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Key partitions events by venue and sport
func (e *SlotEvent) Key() string {
	return e.VenueID + ":" + e.SportID
}

// NewBookingConfirmedEvent announces that slot is now taken by booking
func NewBookingConfirmedEvent(booking *Booking, slot *Slot) *SlotEvent {
	return newSlotEvent(SlotEventBookingConfirmed, slot, booking.ID)
}

// NewAvailabilityChangedEvent announces that a persisted slot flag flipped
func NewAvailabilityChangedEvent(slot *Slot) *SlotEvent {
	return newSlotEvent(SlotEventAvailabilityChanged, slot, "")
}

func newSlotEvent(eventType SlotEventType, slot *Slot, bookingID string) *SlotEvent {
	e := &SlotEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		VenueID:    slot.VenueID,
		SportID:    slot.SportID,
		SlotRef:    slot.Ref,
		SlotTime:   slot.SlotTime,
		Available:  false,
		BookingID:  bookingID,
		OccurredAt: time.Now().UTC(),
	}
	if slot.IsPersisted() {
		e.SlotID = slot.ID
	}
	return e
}
