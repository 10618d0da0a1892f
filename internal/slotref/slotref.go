// Package slotref encodes and decodes the references clients use to name a
// slot. A persisted slot is named by its bare UUID. A virtual slot is named by
//
//	virtual-<venue-uuid>-<sport-uuid>-<YYYY-MM-DD>-<HH:MM:SS>
//
// Every field has a fixed number of hyphen-separated segments, so decoding
// splits on "-" and counts segments instead of guessing where fields end.
package slotref

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
)

// VirtualPrefix marks a reference as virtual
const VirtualPrefix = "virtual-"

const (
	uuidSegments = 5
	dateSegments = 3
	timeSegments = 1

	virtualSegments = 2*uuidSegments + dateSegments + timeSegments
)

// Reference is a decoded slot reference
type Reference struct {
	Kind      domain.SlotKind
	SlotID    string
	VenueID   string
	SportID   string
	Date      string
	StartTime string
}

// String re-encodes the reference
func (r *Reference) String() string {
	if r.Kind == domain.SlotKindPersisted {
		return r.SlotID
	}
	return VirtualPrefix + strings.Join([]string{r.VenueID, r.SportID, r.Date, r.StartTime}, "-")
}

// Encode builds a virtual reference. Date and time are normalized to
// YYYY-MM-DD and HH:MM:SS, so equal slots always encode the same way.
func Encode(venueID, sportID, date, startTime string) (string, error) {
	venue, err := uuid.Parse(venueID)
	if err != nil {
		return "", fmt.Errorf("%w: venue id %q", domain.ErrMalformedReference, venueID)
	}
	sport, err := uuid.Parse(sportID)
	if err != nil {
		return "", fmt.Errorf("%w: sport id %q", domain.ErrMalformedReference, sportID)
	}
	d, err := domain.ParseSlotDate(date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedReference, err)
	}
	clock, err := domain.ParseSlotClock(startTime)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedReference, err)
	}

	ref := &Reference{
		Kind:      domain.SlotKindVirtual,
		VenueID:   venue.String(),
		SportID:   sport.String(),
		Date:      d.Format(domain.DateLayout),
		StartTime: domain.FormatClock(clock),
	}
	return ref.String(), nil
}

// Parse decodes a persisted or virtual reference
func Parse(raw string) (*Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrMalformedReference)
	}

	if !strings.HasPrefix(raw, VirtualPrefix) {
		id, err := uuid.Parse(raw)
		if err != nil || len(raw) != 36 {
			return nil, fmt.Errorf("%w: %q", domain.ErrMalformedReference, raw)
		}
		return &Reference{Kind: domain.SlotKindPersisted, SlotID: id.String()}, nil
	}

	return parseVirtual(strings.TrimPrefix(raw, VirtualPrefix))
}

func parseVirtual(body string) (*Reference, error) {
	parts := strings.Split(body, "-")
	if len(parts) != virtualSegments {
		return nil, fmt.Errorf("%w: expected %d segments, got %d", domain.ErrMalformedReference, virtualSegments, len(parts))
	}

	next := 0
	take := func(n int) string {
		s := strings.Join(parts[next:next+n], "-")
		next += n
		return s
	}

	ref := &Reference{Kind: domain.SlotKindVirtual}
	venue := take(uuidSegments)
	sport := take(uuidSegments)
	ref.Date = take(dateSegments)
	ref.StartTime = take(timeSegments)

	venueID, err := uuid.Parse(venue)
	if err != nil {
		return nil, fmt.Errorf("%w: venue id %q", domain.ErrMalformedReference, venue)
	}
	sportID, err := uuid.Parse(sport)
	if err != nil {
		return nil, fmt.Errorf("%w: sport id %q", domain.ErrMalformedReference, sport)
	}
	// Only the exact form Encode produces is accepted, so a slot has one reference
	if d, err := time.Parse(domain.DateLayout, ref.Date); err != nil || d.Format(domain.DateLayout) != ref.Date {
		return nil, fmt.Errorf("%w: date %q", domain.ErrMalformedReference, ref.Date)
	}
	if t, err := time.Parse(domain.ClockLayout, ref.StartTime); err != nil || t.Format(domain.ClockLayout) != ref.StartTime {
		return nil, fmt.Errorf("%w: time %q", domain.ErrMalformedReference, ref.StartTime)
	}

	ref.VenueID = venueID.String()
	ref.SportID = sportID.String()
	return ref, nil
}

// Decode returns the virtual slot fields named by raw. Persisted references
// are rejected.
func Decode(raw string) (venueID, sportID, date, startTime string, err error) {
	ref, err := Parse(raw)
	if err != nil {
		return "", "", "", "", err
	}
	if ref.Kind != domain.SlotKindVirtual {
		return "", "", "", "", fmt.Errorf("%w: %q is not a virtual reference", domain.ErrMalformedReference, raw)
	}
	return ref.VenueID, ref.SportID, ref.Date, ref.StartTime, nil
}
