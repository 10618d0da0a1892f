// Package tariff prices a slot from a venue's schedule template.
package tariff

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
)

// Day-group keys recognized in pricing rules
const (
	GroupWeekday = "monday-thursday"
	GroupWeekend = "friday-sunday"
	GroupAllWeek = "monday-sunday"
)

// tier orders rule matches from most to least specific
type tier int

const (
	tierExactDay tier = iota
	tierDayGroup
	tierAllWeek
	tierNone
)

var dayAliases = map[string]string{
	"mon": "monday", "tue": "tuesday", "tues": "tuesday", "wed": "wednesday",
	"thu": "thursday", "thur": "thursday", "thurs": "thursday", "fri": "friday",
	"sat": "saturday", "sun": "sunday",
}

// Resolver picks a price for a slot. It is pure apart from logging.
type Resolver struct {
	defaultPrice int64
	log          *logger.Logger
}

// NewResolver creates a resolver that falls back to defaultPrice
func NewResolver(defaultPrice int64, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{defaultPrice: defaultPrice, log: log}
}

// DefaultPrice returns the fallback price
func (r *Resolver) DefaultPrice() int64 {
	return r.defaultPrice
}

// Resolve prices the slot starting at date/startTime for sportID. Rules that
// cannot be matched and inputs that cannot be parsed yield the default price.
func (r *Resolver) Resolve(rules []domain.PricingRule, sportID, date, startTime string) int64 {
	d, err := domain.ParseSlotDate(date)
	if err != nil {
		r.log.Warn("Unparsable slot date, using default price", zap.String("date", date), zap.Error(err))
		return r.defaultPrice
	}
	clock, err := domain.ParseSlotClock(startTime)
	if err != nil {
		r.log.Warn("Unparsable slot time, using default price", zap.String("start_time", startTime), zap.Error(err))
		return r.defaultPrice
	}
	return r.ResolveAt(rules, sportID, d.Weekday(), int(clock/time.Hour))
}

// ResolveAt prices a slot by weekday and starting hour. Ties go exact weekday,
// then the weekday's group, then monday-sunday, and within a tier a
// sport-specific rule beats a venue-wide one.
func (r *Resolver) ResolveAt(rules []domain.PricingRule, sportID string, weekday time.Weekday, hour int) int64 {
	session := domain.SessionForHour(hour)
	day := strings.ToLower(weekday.String())
	group := groupFor(weekday)

	best := tierNone
	bestSpecific := false
	price := r.defaultPrice

	for _, rule := range rules {
		if rule.Session != session {
			continue
		}
		if rule.SportID != "" && rule.SportID != sportID {
			continue
		}

		var t tier
		switch NormalizeDay(rule.Day) {
		case day:
			t = tierExactDay
		case group:
			t = tierDayGroup
		case GroupAllWeek:
			t = tierAllWeek
		default:
			continue
		}

		specific := rule.SportID != ""
		if t < best || (t == best && specific && !bestSpecific) {
			best = t
			bestSpecific = specific
			price = rule.Price
		}
	}

	return price
}

func groupFor(weekday time.Weekday) string {
	switch weekday {
	case time.Friday, time.Saturday, time.Sunday:
		return GroupWeekend
	default:
		return GroupWeekday
	}
}

// NormalizeDay lowercases a rule's day label and expands abbreviations, so
// "Fri - Sun" and "friday–sunday" both become "friday-sunday"
func NormalizeDay(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer("–", "-", "—", "-", " to ", "-").Replace(s)

	parts := strings.Split(s, "-")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if full, ok := dayAliases[p]; ok {
			p = full
		}
		parts[i] = p
	}
	return strings.Join(parts, "-")
}
