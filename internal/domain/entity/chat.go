package entity

import (
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who authored a chat turn
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ChatTurn is a single message in a conversation. Turns are never modified after being appended.
type ChatTurn struct {
	ID        string         `json:"id"`
	Speaker   Speaker        `json:"type"`
	Text      string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Record    *InvoiceRecord `json:"data,omitempty"`
}

// NewChatTurn creates a turn with a fresh id and the current time.
// The record, if any, is snapshotted so later merges cannot alter it.
func NewChatTurn(speaker Speaker, text string, record *InvoiceRecord) ChatTurn {
	turn := ChatTurn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	}
	if record != nil {
		snapshot := record.Clone()
		turn.Record = &snapshot
	}
	return turn
}
