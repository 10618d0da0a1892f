package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/repository"
	"github.com/prohmpiriya/sport-slots-booker/internal/slotref"
	"github.com/prohmpiriya/sport-slots-booker/internal/tariff"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// SlotService turns slot references into priced, booking-eligible slots
type SlotService interface {
	// ResolveSlot decodes ref and loads or synthesizes the slot it names
	ResolveSlot(ctx context.Context, ref string) (*domain.Slot, error)
}

type slotService struct {
	slotRepo     repository.SlotRepository
	catalogRepo  repository.CatalogRepository
	availability AvailabilityService
	tariff       *tariff.Resolver
	location     *time.Location
	log          *logger.Logger
}

// SlotServiceConfig contains configuration for slot service
type SlotServiceConfig struct {
	// Location interprets slot dates and times; defaults to UTC
	Location *time.Location
}

// NewSlotService creates a new slot service
func NewSlotService(
	slotRepo repository.SlotRepository,
	catalogRepo repository.CatalogRepository,
	availability AvailabilityService,
	resolver *tariff.Resolver,
	log *logger.Logger,
	cfg *SlotServiceConfig,
) SlotService {
	loc := time.UTC
	if cfg != nil && cfg.Location != nil {
		loc = cfg.Location
	}
	if log == nil {
		log = logger.Nop()
	}
	return &slotService{
		slotRepo:     slotRepo,
		catalogRepo:  catalogRepo,
		availability: availability,
		tariff:       resolver,
		location:     loc,
		log:          log,
	}
}

func (s *slotService) ResolveSlot(ctx context.Context, raw string) (*domain.Slot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.slot.resolve")
	defer span.End()

	ref, err := slotref.Parse(raw)
	if err != nil {
		span.SetStatus(codes.Error, "malformed reference")
		return nil, err
	}
	span.SetAttributes(attribute.String("slot_kind", string(ref.Kind)))

	var slot *domain.Slot
	if ref.Kind == domain.SlotKindPersisted {
		slot, err = s.resolvePersisted(ctx, ref)
	} else {
		slot, err = s.resolveVirtual(ctx, ref)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("venue_id", slot.VenueID),
		attribute.String("sport_id", slot.SportID),
		attribute.Int64("price", slot.Price),
		attribute.Bool("available", slot.Available),
	)
	span.SetStatus(codes.Ok, "")
	return slot, nil
}

// resolvePersisted loads the stored slot. A slot whose flag is already down
// is refused here, before the user fills in any details.
func (s *slotService) resolvePersisted(ctx context.Context, ref *slotref.Reference) (*domain.Slot, error) {
	row, err := s.slotRepo.GetByID(ctx, ref.SlotID)
	if err != nil {
		return nil, err
	}
	if !row.Available {
		return nil, domain.ErrSlotAlreadyBooked
	}

	venue, sport, err := s.loadCatalog(ctx, row.VenueID, row.SportID)
	if err != nil {
		return nil, err
	}

	slot := &domain.Slot{
		Ref:       ref.String(),
		Kind:      domain.SlotKindPersisted,
		ID:        row.ID,
		VenueID:   row.VenueID,
		SportID:   row.SportID,
		VenueName: venue.Name,
		SportName: sport.Name,
		Date:      row.Date,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Price:     row.Price,
		Available: row.Available,
	}

	// The canonical instant is the uniqueness key, so a slot without one cannot be booked
	slot.SlotTime, err = domain.CanonicalSlotTime(row.Date, row.StartTime, s.location)
	if err != nil {
		s.log.ErrorContext(ctx, "Persisted slot has unparsable date or time",
			zap.String("slot_id", row.ID),
			zap.String("date", row.Date),
			zap.String("start_time", row.StartTime),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: slot %s has no usable start time: %v", domain.ErrSlotNotFound, row.ID, err)
	}
	return slot, nil
}

// resolveVirtual builds a slot that exists only as a reference. Its price
// comes from the venue's pricing rules and its availability from the
// booking table.
func (s *slotService) resolveVirtual(ctx context.Context, ref *slotref.Reference) (*domain.Slot, error) {
	venue, sport, err := s.loadCatalog(ctx, ref.VenueID, ref.SportID)
	if err != nil {
		return nil, err
	}

	rules, err := s.catalogRepo.ListPricingRules(ctx, ref.VenueID)
	if err != nil {
		return nil, err
	}

	slotTime, err := domain.CanonicalSlotTime(ref.Date, ref.StartTime, s.location)
	if err != nil {
		return nil, domain.ErrMalformedReference
	}
	endTime, err := domain.SessionEnd(ref.StartTime)
	if err != nil {
		return nil, domain.ErrMalformedReference
	}

	booked, err := s.availability.IsBooked(ctx, ref.VenueID, ref.SportID, slotTime)
	if err != nil {
		return nil, err
	}

	return &domain.Slot{
		Ref:       ref.String(),
		Kind:      domain.SlotKindVirtual,
		VenueID:   ref.VenueID,
		SportID:   ref.SportID,
		VenueName: venue.Name,
		SportName: sport.Name,
		Date:      ref.Date,
		StartTime: ref.StartTime,
		EndTime:   endTime,
		SlotTime:  slotTime,
		Price:     s.tariff.Resolve(rules, ref.SportID, ref.Date, ref.StartTime),
		Available: !booked,
	}, nil
}

func (s *slotService) loadCatalog(ctx context.Context, venueID, sportID string) (*domain.Venue, *domain.Sport, error) {
	venue, err := s.catalogRepo.GetVenue(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}
	sport, err := s.catalogRepo.GetSport(ctx, sportID)
	if err != nil {
		return nil, nil, err
	}
	return venue, sport, nil
}
