package domain

import "fmt"

// CommitState is a step of the booking commit protocol
type CommitState string

const (
	CommitStateSelected   CommitState = "selected"
	CommitStateChecking   CommitState = "checking"
	CommitStateCommitting CommitState = "committing"
	CommitStateConfirmed  CommitState = "confirmed"
	CommitStateRejected   CommitState = "rejected"
)

var commitTransitions = map[CommitState][]CommitState{
	CommitStateSelected:   {CommitStateChecking},
	CommitStateChecking:   {CommitStateCommitting, CommitStateRejected},
	CommitStateCommitting: {CommitStateConfirmed, CommitStateRejected},
}

// CanTransitionTo reports whether next is a legal successor of s
func (s CommitState) CanTransitionTo(next CommitState) bool {
	for _, allowed := range commitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the protocol
func (s CommitState) IsTerminal() bool {
	return s == CommitStateConfirmed || s == CommitStateRejected
}

// BookingAttempt tracks one user's attempt to book one slot
type BookingAttempt struct {
	UserID  string
	Slot    *Slot
	Contact Contact
	State   CommitState
	Booking *Booking
	Err     error
	History []CommitState
}

// NewBookingAttempt starts an attempt in the Selected state
func NewBookingAttempt(userID string, slot *Slot, contact Contact) *BookingAttempt {
	return &BookingAttempt{
		UserID:  userID,
		Slot:    slot,
		Contact: contact,
		State:   CommitStateSelected,
		History: []CommitState{CommitStateSelected},
	}
}

// Advance moves the attempt to next, refusing illegal transitions
func (a *BookingAttempt) Advance(next CommitState) error {
	if !a.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, next)
	}
	a.State = next
	a.History = append(a.History, next)
	return nil
}

// Reject ends the attempt with cause
func (a *BookingAttempt) Reject(cause error) error {
	if err := a.Advance(CommitStateRejected); err != nil {
		return err
	}
	a.Err = cause
	return cause
}

// Confirm ends the attempt with the committed booking
func (a *BookingAttempt) Confirm(booking *Booking) error {
	if err := a.Advance(CommitStateConfirmed); err != nil {
		return err
	}
	a.Booking = booking
	return nil
}
