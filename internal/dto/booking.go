package dto

import (
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
)

// CreateBookingRequest is the body of POST /bookings
type CreateBookingRequest struct {
	SlotRef  string `json:"slot_ref" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// BookingResponse is the JSON view of a booking
type BookingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	VenueID   string    `json:"venue_id"`
	SportID   string    `json:"sport_id"`
	SlotID    string    `json:"slot_id,omitempty"`
	SlotTime  time.Time `json:"slot_time"`
	Status    string    `json:"status"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBookingResponse reports the outcome of the commit protocol
type CreateBookingResponse struct {
	State   string           `json:"state"`
	Booking *BookingResponse `json:"booking"`
	Warning string           `json:"warning,omitempty"`
}

// ErrorResponse represents an error response. Redirect tells the client where
// to send the user when the slot cannot be booked.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	State    string `json:"state,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// NewBookingResponse converts a booking
func NewBookingResponse(b *domain.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		VenueID:   b.VenueID,
		SportID:   b.SportID,
		SlotTime:  b.SlotTime,
		Status:    string(b.Status),
		FullName:  b.FullName,
		Phone:     b.Phone,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
	if b.SlotID != nil {
		resp.SlotID = *b.SlotID
	}
	return resp
}
