package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/metrics"
	"github.com/prohmpiriya/sport-slots-booker/internal/repository"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

const defaultPublishTimeout = 5 * time.Second

// BookingService runs the commit protocol that turns a selected slot into a
// confirmed booking
type BookingService interface {
	// BookSlot validates contact details, resolves ref and submits the booking
	BookSlot(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error)

	// SubmitBooking drives an already resolved slot through
	// Selected -> Checking -> Committing -> Confirmed | Rejected
	SubmitBooking(ctx context.Context, userID string, slot *domain.Slot, contact domain.Contact) (*domain.BookingAttempt, error)

	// GetBooking retrieves a booking owned by userID
	GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
}

type bookingService struct {
	bookingRepo    repository.BookingRepository
	slotRepo       repository.SlotRepository
	slots          SlotService
	availability   AvailabilityService
	eventPublisher EventPublisher
	publishTimeout time.Duration
	now            func() time.Time
	log            *logger.Logger
}

// BookingServiceConfig contains configuration for booking service
type BookingServiceConfig struct {
	PublishTimeout time.Duration
	// Now overrides the clock used for created_at
	Now func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	slots SlotService,
	availability AvailabilityService,
	eventPublisher EventPublisher,
	log *logger.Logger,
	cfg *BookingServiceConfig,
) BookingService {
	publishTimeout := defaultPublishTimeout
	now := func() time.Time { return time.Now().UTC() }
	if cfg != nil {
		if cfg.PublishTimeout > 0 {
			publishTimeout = cfg.PublishTimeout
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &bookingService{
		bookingRepo:    bookingRepo,
		slotRepo:       slotRepo,
		slots:          slots,
		availability:   availability,
		eventPublisher: eventPublisher,
		publishTimeout: publishTimeout,
		now:            now,
		log:            log,
	}
}

// BookSlot checks the form before anything touches storage
func (s *bookingService) BookSlot(ctx context.Context, userID, ref string, contact domain.Contact) (*domain.BookingAttempt, error) {
	if err := validateRequest(userID, contact); err != nil {
		return nil, err
	}

	slot, err := s.slots.ResolveSlot(ctx, ref)
	if err != nil {
		return nil, err
	}

	return s.SubmitBooking(ctx, userID, slot, contact)
}

func (s *bookingService) SubmitBooking(ctx context.Context, userID string, slot *domain.Slot, contact domain.Contact) (*domain.BookingAttempt, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.submit")
	defer span.End()

	attempt := domain.NewBookingAttempt(userID, slot, contact)

	if err := validateRequest(userID, contact); err != nil {
		attempt.Err = err
		span.SetStatus(codes.Error, "validation failed")
		return attempt, err
	}
	if slot == nil || slot.VenueID == "" || slot.SportID == "" {
		attempt.Err = domain.ErrInvalidSlot
		span.SetStatus(codes.Error, "validation failed")
		return attempt, domain.ErrInvalidSlot
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("venue_id", slot.VenueID),
		attribute.String("sport_id", slot.SportID),
		attribute.String("slot_kind", string(slot.Kind)),
	)
	started := time.Now()

	// Checking
	if err := attempt.Advance(domain.CommitStateChecking); err != nil {
		return attempt, err
	}
	available, err := s.availability.CheckSlot(ctx, slot)
	if err != nil {
		return attempt, s.reject(ctx, span, attempt, err, started)
	}
	if !available {
		return attempt, s.reject(ctx, span, attempt, domain.ErrSlotAlreadyBooked, started)
	}

	// Committing
	if err := attempt.Advance(domain.CommitStateCommitting); err != nil {
		return attempt, err
	}
	booking := domain.NewBooking(userID, slot, contact, s.now())
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return attempt, s.reject(ctx, span, attempt, err, started)
	}
	if err := attempt.Confirm(booking); err != nil {
		return attempt, err
	}
	slot.Available = false

	metrics.RecordConfirmation(ctx, slot.VenueID, slot.SportID, time.Since(started).Seconds())
	span.AddEvent("booking_confirmed", trace.WithAttributes(attribute.String("booking_id", booking.ID)))

	events := []*domain.SlotEvent{domain.NewBookingConfirmedEvent(booking, slot)}

	var flagErr error
	if slot.IsPersisted() {
		if err := s.slotRepo.MarkUnavailable(ctx, slot.ID); err != nil {
			flagErr = fmt.Errorf("%w: slot %s: %v", domain.ErrSlotFlagInconsistent, slot.ID, err)
			attempt.Err = flagErr
			metrics.RecordFlagInconsistency(ctx, slot.ID)
			s.log.ErrorContext(ctx, "Booking committed but slot flag not flipped",
				zap.String("booking_id", booking.ID),
				zap.String("slot_id", slot.ID),
				zap.Error(err),
			)
			span.RecordError(flagErr)
		} else {
			events = append(events, domain.NewAvailabilityChangedEvent(slot))
		}
	}

	s.publishAsync(ctx, events)

	s.log.InfoContext(ctx, "Booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", userID),
		zap.String("slot_ref", slot.Ref),
	)
	if flagErr == nil {
		span.SetStatus(codes.Ok, "")
	}
	return attempt, flagErr
}

// reject moves the attempt to Rejected and records why
func (s *bookingService) reject(ctx context.Context, span trace.Span, attempt *domain.BookingAttempt, cause error, started time.Time) error {
	reason := "error"
	switch {
	case domain.IsConflictError(cause):
		reason = "conflict"
	case domain.IsTransientError(cause):
		reason = "transient"
	case domain.IsNotFoundError(cause):
		reason = "not_found"
	}

	metrics.RecordRejection(ctx, attempt.Slot.VenueID, reason, time.Since(started).Seconds())
	span.SetAttributes(attribute.String("reject_reason", reason))
	span.SetStatus(codes.Error, cause.Error())

	if reason != "conflict" {
		s.log.WarnContext(ctx, "Booking attempt rejected",
			zap.String("reason", reason),
			zap.String("slot_ref", attempt.Slot.Ref),
			zap.Error(cause),
		)
	}
	return attempt.Reject(cause)
}

// publishAsync sends events without holding up the caller. Delivery failures
// are logged only; the booking is already committed.
func (s *bookingService) publishAsync(ctx context.Context, events []*domain.SlotEvent) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()

		for _, event := range events {
			if err := s.eventPublisher.PublishSlotEvent(ctx, event); err != nil {
				s.log.WarnContext(ctx, "Failed to publish slot event",
					zap.String("event_id", event.ID),
					zap.String("type", string(event.Type)),
					zap.Error(err),
				)
			}
		}
	}()
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Other users' bookings look like missing ones
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

func validateRequest(userID string, contact domain.Contact) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUserID
	}
	return contact.Validate()
}
