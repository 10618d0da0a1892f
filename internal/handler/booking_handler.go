package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/dto"
	"github.com/prohmpiriya/sport-slots-booker/internal/service"
	"github.com/prohmpiriya/sport-slots-booker/pkg/middleware"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		unauthorized(c)
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("slot_ref", req.SlotRef),
	)

	contact := domain.Contact{FullName: req.FullName, Phone: req.Phone}
	attempt, err := h.bookingService.BookSlot(ctx, userID, req.SlotRef, contact)
	if err != nil && !errors.Is(err, domain.ErrSlotFlagInconsistent) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	resp := dto.CreateBookingResponse{
		State:   string(attempt.State),
		Booking: dto.NewBookingResponse(attempt.Booking),
	}
	if err != nil {
		// The booking holds; only the slot's cached flag is stale
		resp.Warning = "booking confirmed but slot availability could not be updated"
	}

	span.SetAttributes(attribute.String("booking_id", attempt.Booking.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, resp)
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()

	userID := middleware.GetUserID(c)
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		unauthorized(c)
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	// Ids that cannot exist are reported like missing ones
	if _, err := uuid.Parse(bookingID); err != nil {
		span.SetStatus(codes.Error, "invalid booking id")
		handleError(c, domain.ErrBookingNotFound)
		return
	}

	booking, err := h.bookingService.GetBooking(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.NewBookingResponse(booking))
}
