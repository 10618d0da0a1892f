package domain

// Venue is read-only reference data
type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Sport is read-only reference data
type Sport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session splits the day for pricing purposes
type Session string

const (
	SessionMorning Session = "morning"
	SessionEvening Session = "evening"
)

// SessionForHour returns morning for hours before noon, evening otherwise
func SessionForHour(hour int) Session {
	if hour < 12 {
		return SessionMorning
	}
	return SessionEvening
}

// PricingRule is one schedule template rule. Day is either a weekday name or a
// day-group such as "monday-thursday", "friday-sunday" or "monday-sunday".
// An empty SportID applies to every sport at the venue.
type PricingRule struct {
	ID      string  `json:"id"`
	VenueID string  `json:"venue_id"`
	SportID string  `json:"sport_id,omitempty"`
	Day     string  `json:"day"`
	Session Session `json:"session"`
	Price   int64   `json:"price"`
}
