package conversation

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current stage
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrGuardFailed is returned when every guarded transition for a trigger rejects the input
	ErrGuardFailed = errors.New("guard condition failed")
)
