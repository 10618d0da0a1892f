package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/internal/dto"
)

// slotListRedirect is where clients send users whose slot is gone
const slotListRedirect = "/slots"

// handleError maps domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedReference):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:    err.Error(),
			Code:     "MALFORMED_REFERENCE",
			Redirect: slotListRedirect,
		})
	case errors.Is(err, domain.ErrSlotAlreadyBooked):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:    err.Error(),
			Code:     "SLOT_ALREADY_BOOKED",
			Message:  "This slot has already been booked. Please pick another time.",
			Redirect: slotListRedirect,
		})
	case errors.Is(err, domain.ErrSlotConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:    err.Error(),
			Code:     "SLOT_CONFLICT",
			Message:  "Someone else booked this slot a moment ago. Please pick another time.",
			Redirect: slotListRedirect,
		})
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "BOOKING_NOT_FOUND",
		})
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:    err.Error(),
			Code:     "NOT_FOUND",
			Redirect: slotListRedirect,
		})
	case errors.Is(err, domain.ErrInvalidUserID):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "UNAUTHORIZED",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	case domain.IsTransientError(err):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "service temporarily unavailable",
			Code:    "TEMPORARILY_UNAVAILABLE",
			Message: "Please try again in a moment.",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error: "unauthorized",
		Code:  "UNAUTHORIZED",
	})
}

func invalidID(c *gin.Context, field string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid request",
		Code:    "INVALID_REQUEST",
		Message: field + " must be a UUID",
	})
}
