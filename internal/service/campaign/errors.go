package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound = errors.New("campaign not found")

	// ErrInvalidTransition is returned when an operation is attempted in a
	// status that does not allow it (e.g. sending a completed campaign).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptyTarget means the filter resolved to zero recipients.
	ErrEmptyTarget = errors.New("no recipients match the filter")

	// ErrNoCallback means no sender identity could be resolved for a
	// recipient: no campaign-level number, no store entry, no tenant default.
	ErrNoCallback = errors.New("no callback number available")

	// ErrTooLate is the policy rejection for mutations inside the lock
	// window before the scheduled instant (or after it has passed).
	ErrTooLate = errors.New("too close to scheduled time to modify")

	// ErrEditInProgress means another message edit currently holds the
	// per-campaign lock.
	ErrEditInProgress = errors.New("message edit already in progress")
)
