package conversation

import "context"

// TransitionFunc observes a completed stage change
type TransitionFunc func(ctx context.Context, from, to Stage, trigger Trigger)

// StateMachine tracks the current stage of one conversation and validates transitions
type StateMachine interface {
	// Stage returns the current stage
	Stage() Stage

	// CanFire returns true if the trigger has at least one transition from the current stage
	CanFire(trigger Trigger) bool

	// Fire evaluates the transitions for trigger in registration order and moves to the
	// first one whose guard accepts input
	Fire(ctx context.Context, trigger Trigger, input string) error

	// PermittedTriggers returns the triggers configured for the current stage, sorted
	PermittedTriggers() []Trigger

	// OnTransition registers an observer called after every successful Fire
	OnTransition(fn TransitionFunc)
}
