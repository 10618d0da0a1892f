package dto

import (
	"time"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
)

// SlotResponse is the JSON view of a resolved slot
type SlotResponse struct {
	Ref         string    `json:"ref"`
	Kind        string    `json:"kind"`
	ID          string    `json:"id,omitempty"`
	VenueID     string    `json:"venue_id"`
	VenueName   string    `json:"venue_name"`
	SportID     string    `json:"sport_id"`
	SportName   string    `json:"sport_name"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	DisplayDate string    `json:"display_date"`
	DisplayTime string    `json:"display_time"`
	SlotTime    time.Time `json:"slot_time"`
	Session     string    `json:"session"`
	Price       int64     `json:"price"`
	Available   bool      `json:"available"`
}

// AvailabilityQuery binds GET /availability
type AvailabilityQuery struct {
	VenueID  string `form:"venue_id" binding:"required"`
	SportID  string `form:"sport_id" binding:"required"`
	SlotTime string `form:"slot_time" binding:"required"`
}

// AvailabilityResponse answers an availability query
type AvailabilityResponse struct {
	VenueID   string    `json:"venue_id,omitempty"`
	SportID   string    `json:"sport_id,omitempty"`
	SlotID    string    `json:"slot_id,omitempty"`
	SlotRef   string    `json:"slot_ref,omitempty"`
	SlotTime  time.Time `json:"slot_time,omitempty"`
	Available bool      `json:"available"`
}

// NewSlotResponse converts a resolved slot
func NewSlotResponse(slot *domain.Slot) *SlotResponse {
	resp := &SlotResponse{
		Ref:         slot.Ref,
		Kind:        string(slot.Kind),
		ID:          slot.ID,
		VenueID:     slot.VenueID,
		VenueName:   slot.VenueName,
		SportID:     slot.SportID,
		SportName:   slot.SportName,
		Date:        slot.Date,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		DisplayDate: domain.DisplayDate(slot.Date),
		DisplayTime: domain.DisplayClock(slot.StartTime) + " - " + domain.DisplayClock(slot.EndTime),
		SlotTime:    slot.SlotTime,
		Price:       slot.Price,
		Available:   slot.Available,
	}
	if clock, err := domain.ParseSlotClock(slot.StartTime); err == nil {
		resp.Session = string(domain.SessionForHour(int(clock / time.Hour)))
	}
	return resp
}
