package conversation

// Trigger is an event that moves the conversation between stages
type Trigger string

const (
	// TriggerNeedMore fires when the accumulated record is not yet submittable
	TriggerNeedMore Trigger = "NEED_MORE"
	// TriggerReady fires when the accumulated record can be confirmed
	TriggerReady Trigger = "READY"
	// TriggerConfirm fires when the user answers the confirmation prompt
	TriggerConfirm Trigger = "CONFIRM"
	// TriggerSubmitted fires once the submission call returns, successfully or not
	TriggerSubmitted Trigger = "SUBMITTED"
	// TriggerRestart starts a new request cycle from the current utterance
	TriggerRestart Trigger = "RESTART"
	// TriggerReset clears the conversation on explicit user request
	TriggerReset Trigger = "RESET"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
