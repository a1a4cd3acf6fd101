package event

// Type identifies the type of conversation event
type Type string

const (
	TypeSessionStarted   Type = "session.started"
	TypeSessionCleared   Type = "session.cleared"
	TypeSessionExpired   Type = "session.expired"
	TypeStageChanged     Type = "conversation.stage_changed"
	TypeInvoiceIssued    Type = "invoice.issued"
	TypeSubmissionFailed Type = "invoice.submission_failed"
)

// All lists every event type, in the order subscribers usually register
var All = []Type{
	TypeSessionStarted,
	TypeSessionCleared,
	TypeSessionExpired,
	TypeStageChanged,
	TypeInvoiceIssued,
	TypeSubmissionFailed,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range All {
		if t == known {
			return true
		}
	}
	return false
}
