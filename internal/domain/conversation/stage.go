package conversation

// Stage is a phase of the invoice conversation
type Stage string

const (
	StageInitial    Stage = "INITIAL"
	StageCollecting Stage = "COLLECTING"
	StageConfirming Stage = "CONFIRMING"
	StageGenerating Stage = "GENERATING"
	StageCompleted  Stage = "COMPLETED"
)

var validStages = map[Stage]bool{
	StageInitial:    true,
	StageCollecting: true,
	StageConfirming: true,
	StageGenerating: true,
	StageCompleted:  true,
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known conversation stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// StartsNewRequest reports whether the next utterance in this stage begins a fresh invoice
func (s Stage) StartsNewRequest() bool {
	return s == StageInitial || s == StageCompleted
}
