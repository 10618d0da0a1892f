package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
}

var clockLayouts = []string{
	ClockLayout,
	"15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseSlotDate accepts a bare date or a full timestamp and returns the
// calendar date at midnight UTC
func ParseSlotDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseSlotClock accepts HH:MM:SS, HH:MM or a full timestamp and returns the
// offset from midnight
func ParseSlotClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

// FormatClock renders an offset from midnight as HH:MM:SS, wrapping past 24h
func FormatClock(d time.Duration) string {
	d %= 24 * time.Hour
	if d < 0 {
		d += 24 * time.Hour
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// CanonicalSlotTime merges date and start time into the instant used as the
// booking uniqueness key
func CanonicalSlotTime(date, startTime string, loc *time.Location) (time.Time, error) {
	d, err := ParseSlotDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := ParseSlotClock(startTime)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).Add(clock), nil
}

// SessionEnd returns start + SessionLength as HH:MM:SS
func SessionEnd(startTime string) (string, error) {
	clock, err := ParseSlotClock(startTime)
	if err != nil {
		return "", err
	}
	return FormatClock(clock + SessionLength), nil
}

// DisplayDate renders a date for people, or returns the input unchanged when it cannot be parsed
func DisplayDate(s string) string {
	d, err := ParseSlotDate(s)
	if err != nil {
		return s
	}
	return d.Format("Mon, 02 Jan 2006")
}

// DisplayClock renders HH:MM, or returns the input unchanged when it cannot be parsed
func DisplayClock(s string) string {
	clock, err := ParseSlotClock(s)
	if err != nil {
		return s
	}
	return FormatClock(clock)[:5]
}
