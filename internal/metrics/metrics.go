package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

var (
	// Commit protocol counters
	BookingsConfirmed     *telemetry.Counter
	BookingsRejected      *telemetry.Counter
	SlotFlagInconsistency *telemetry.Counter

	// Feed counters
	FeedEventsPublished *telemetry.Counter
	FeedEventsDropped   *telemetry.Counter

	// Histograms
	CommitDuration *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "slot_bookings_confirmed_total",
		Description: "Total number of confirmed slot bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "slot_bookings_rejected_total",
		Description: "Total number of rejected booking attempts by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SlotFlagInconsistency, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "slot_flag_inconsistency_total",
		Description: "Bookings committed whose persisted slot flag could not be flipped",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	FeedEventsPublished, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "slot_feed_events_published_total",
		Description: "Total number of availability events published",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	FeedEventsDropped, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "slot_feed_events_dropped_total",
		Description: "Availability events dropped for slow subscribers",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CommitDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "slot_booking_commit_duration_seconds",
		Description: "Time from Checking to a terminal commit state",
		Unit:        "s",
	})
	return err
}

// RecordConfirmation records a confirmed booking
func RecordConfirmation(ctx context.Context, venueID, sportID string, durationSeconds float64) {
	BookingsConfirmed.Inc(ctx,
		attribute.String("venue_id", venueID),
		attribute.String("sport_id", sportID),
	)
	CommitDuration.Record(ctx, durationSeconds, attribute.String("outcome", "confirmed"))
}

// RecordRejection records a rejected attempt
func RecordRejection(ctx context.Context, venueID, reason string, durationSeconds float64) {
	BookingsRejected.Inc(ctx,
		attribute.String("venue_id", venueID),
		attribute.String("reason", reason),
	)
	CommitDuration.Record(ctx, durationSeconds, attribute.String("outcome", "rejected"))
}

// RecordFlagInconsistency records a booking whose slot flag is stale
func RecordFlagInconsistency(ctx context.Context, slotID string) {
	SlotFlagInconsistency.Inc(ctx, attribute.String("slot_id", slotID))
}

// RecordFeedPublished records an event handed to the feed transport
func RecordFeedPublished(ctx context.Context, eventType string) {
	FeedEventsPublished.Inc(ctx, attribute.String("type", eventType))
}

// RecordFeedDropped records an event a subscriber missed
func RecordFeedDropped(ctx context.Context, eventType string) {
	FeedEventsDropped.Inc(ctx, attribute.String("type", eventType))
}
