package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/dto"
	"github.com/prohmpiriya/sport-slots-booker/internal/service"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// SlotHandler handles slot lookup and availability requests
type SlotHandler struct {
	slotService         service.SlotService
	availabilityService service.AvailabilityService
}

// NewSlotHandler creates a new slot handler
func NewSlotHandler(slotService service.SlotService, availabilityService service.AvailabilityService) *SlotHandler {
	return &SlotHandler{
		slotService:         slotService,
		availabilityService: availabilityService,
	}
}

// GetSlot handles GET /slots/:ref
func (h *SlotHandler) GetSlot(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.slot.get")
	defer span.End()

	ref := c.Param("ref")
	span.SetAttributes(attribute.String("slot_ref", ref))

	slot, err := h.slotService.ResolveSlot(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.NewSlotResponse(slot))
}

// GetSlotAvailability handles GET /slots/:ref/availability. Unlike GetSlot it
// answers for slots that are already taken instead of refusing them.
func (h *SlotHandler) GetSlotAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.slot.availability")
	defer span.End()

	ref := c.Param("ref")
	span.SetAttributes(attribute.String("slot_ref", ref))

	slot, err := h.slotService.ResolveSlot(ctx, ref)
	if err != nil {
		if isAlreadyBooked(err) {
			c.JSON(http.StatusOK, dto.AvailabilityResponse{SlotRef: ref, Available: false})
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	resp := dto.AvailabilityResponse{
		VenueID:   slot.VenueID,
		SportID:   slot.SportID,
		SlotRef:   slot.Ref,
		SlotTime:  slot.SlotTime,
		Available: slot.Available,
	}
	if slot.IsPersisted() {
		resp.SlotID = slot.ID
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, resp)
}

// CheckAvailability handles GET /availability?venue_id=&sport_id=&slot_time=
func (h *SlotHandler) CheckAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.slot.check_availability")
	defer span.End()

	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	venueID, err := uuid.Parse(query.VenueID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid venue_id")
		invalidID(c, "venue_id")
		return
	}
	sportID, err := uuid.Parse(query.SportID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid sport_id")
		invalidID(c, "sport_id")
		return
	}
	query.VenueID = venueID.String()
	query.SportID = sportID.String()

	slotTime, err := time.Parse(time.RFC3339, query.SlotTime)
	if err != nil {
		span.SetStatus(codes.Error, "invalid slot_time")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid slot_time",
			Code:    "INVALID_REQUEST",
			Message: "slot_time must be RFC3339",
		})
		return
	}

	booked, err := h.availabilityService.IsBooked(ctx, query.VenueID, query.SportID, slotTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.AvailabilityResponse{
		VenueID:   query.VenueID,
		SportID:   query.SportID,
		SlotTime:  slotTime,
		Available: !booked,
	})
}

func isAlreadyBooked(err error) bool {
	return errors.Is(err, domain.ErrSlotAlreadyBooked)
}
