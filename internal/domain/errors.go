package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrVenueNotFound   = errors.New("venue not found")
	ErrSportNotFound   = errors.New("sport not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")

	// Reference errors
	ErrMalformedReference = errors.New("malformed slot reference")

	// Availability errors
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
	ErrSlotConflict      = errors.New("slot was booked by another user")

	// Validation errors
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrMissingFullName = errors.New("full name is required")
	ErrMissingPhone    = errors.New("phone number is required")
	ErrInvalidPhone    = errors.New("phone number must contain at least 10 digits")

	// Storage errors
	ErrTransientIO = errors.New("storage temporarily unavailable")

	// Raised when the booking row committed but the persisted slot flag could not be flipped
	ErrSlotFlagInconsistent = errors.New("booking confirmed but slot availability was not updated")

	// Commit protocol errors
	ErrInvalidTransition = errors.New("invalid commit state transition")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrVenueNotFound) ||
		errors.Is(err, ErrSportNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidSlot) ||
		errors.Is(err, ErrMissingFullName) ||
		errors.Is(err, ErrMissingPhone) ||
		errors.Is(err, ErrInvalidPhone)
}

// IsConflictError reports availability violations, whether caught by the
// pre-check or by the storage constraint
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSlotAlreadyBooked) ||
		errors.Is(err, ErrSlotConflict)
}

// IsTransientError checks if the error came from a storage or network failure
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransientIO)
}
