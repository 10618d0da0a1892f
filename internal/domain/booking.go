package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPhoneDigits is the minimum number of digits a contact phone must carry
const MinPhoneDigits = 10

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
)

// Booking is a committed reservation. At most one confirmed booking exists
// per (venue, sport, slot time), enforced by storage.
type Booking struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	VenueID   string        `json:"venue_id"`
	SportID   string        `json:"sport_id"`
	SlotID    *string       `json:"slot_id,omitempty"`
	SlotTime  time.Time     `json:"slot_time"`
	Status    BookingStatus `json:"status"`
	FullName  string        `json:"full_name"`
	Phone     string        `json:"phone"`
	Amount    int64         `json:"amount"`
	CreatedAt time.Time     `json:"created_at"`
}

// Contact is the user-supplied part of a booking
type Contact struct {
	FullName string
	Phone    string
}

// Validate checks the contact details without touching storage
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return ErrMissingFullName
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrMissingPhone
	}
	if CountDigits(c.Phone) < MinPhoneDigits {
		return ErrInvalidPhone
	}
	return nil
}

// CountDigits counts the decimal digits in s, ignoring separators
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// NewBooking builds a confirmed booking for the resolved slot
func NewBooking(userID string, slot *Slot, contact Contact, now time.Time) *Booking {
	return &Booking{
		ID:        uuid.New().String(),
		UserID:    userID,
		VenueID:   slot.VenueID,
		SportID:   slot.SportID,
		SlotID:    slot.SlotIDPtr(),
		SlotTime:  slot.SlotTime,
		Status:    BookingStatusConfirmed,
		FullName:  strings.TrimSpace(contact.FullName),
		Phone:     strings.TrimSpace(contact.Phone),
		Amount:    slot.Price,
		CreatedAt: now,
	}
}
