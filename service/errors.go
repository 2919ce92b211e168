package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers branch with errors.Is;
// the API layer maps them to HTTP statuses.
var (
	// ErrInsufficientBalance is returned when a debit exceeds the account
	// balance. The debit leaves no partial state behind.
	ErrInsufficientBalance = errors.New("insufficient points balance")

	// ErrNotFound is returned for unknown rooms, tickets or users.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned for non-host commands on host-only
	// actions and for claims on another user's ticket.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidState is returned when an action is not valid for the
	// room's current lifecycle state.
	ErrInvalidState = errors.New("invalid room state")

	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyClaimed is returned when a prize type already has a winner
	// in the room.
	ErrAlreadyClaimed = errors.New("prize already claimed")

	// ErrBanned is returned when a banned account issues any game command.
	ErrBanned = errors.New("account is banned")
)

// validationf wraps ErrValidation with a descriptive message.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// statef wraps ErrInvalidState with a descriptive message.
func statef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}
