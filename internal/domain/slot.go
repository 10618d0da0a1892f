package domain

import (
	"time"
)

// SessionLength is the fixed duration of every bookable slot
const SessionLength = 30 * time.Minute

// SlotKind tells virtual slots from persisted ones
type SlotKind string

const (
	SlotKindVirtual   SlotKind = "virtual"
	SlotKindPersisted SlotKind = "persisted"
)

// PersistedSlot is a materialized slot row. Available is authoritative and
// only ever moves from true to false.
type PersistedSlot struct {
	ID        string
	VenueID   string
	SportID   string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM:SS
	EndTime   string // HH:MM:SS
	Price     int64
	Available bool
}

// Slot is a resolved, priced, booking-eligible time window. Virtual slots have
// no ID and are never stored.
type Slot struct {
	Ref       string
	Kind      SlotKind
	ID        string
	VenueID   string
	SportID   string
	VenueName string
	SportName string
	Date      string
	StartTime string
	EndTime   string
	SlotTime  time.Time
	Price     int64
	Available bool
}

// IsPersisted reports whether the slot is backed by a row with its own flag
func (s *Slot) IsPersisted() bool {
	return s.Kind == SlotKindPersisted
}

// SlotIDPtr returns the persisted slot id, or nil for virtual slots
func (s *Slot) SlotIDPtr() *string {
	if !s.IsPersisted() || s.ID == "" {
		return nil
	}
	id := s.ID
	return &id
}
