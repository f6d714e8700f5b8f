package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrBlocked        = errors.New("account blocked")
	ErrNoSeats        = errors.New("no seats available")
	ErrAlreadyBooked  = errors.New("already booked")

	// ErrNotBooked is returned when cancelling a booking the passenger does not hold.
	ErrNotBooked = errors.New("not booked on this ride")
	// ErrRideClosed is returned when booking a ride that is completed or cancelled.
	ErrRideClosed = errors.New("ride is no longer active")
	// ErrInvalidTransition is returned for status changes out of a terminal state.
	ErrInvalidTransition = errors.New("invalid ride status transition")
)

// BlockedError carries the reason an account was blocked.
// errors.Is(err, ErrBlocked) reports true for it.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: no reason provided", ErrBlocked)
	}
	return fmt.Sprintf("%s: %s", ErrBlocked, e.Reason)
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }
