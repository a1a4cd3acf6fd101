package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/factura-chat/internal/application/port"
	domainconv "github.com/garyjia/factura-chat/internal/domain/conversation"
	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/garyjia/factura-chat/internal/invoice"
	"go.uber.org/zap"
)

// affirmations are matched as substrings of the lowercased utterance
var affirmations = []string{"sí", "si", "confirmo", "ok"}

// IsAffirmation reports whether text confirms the pending invoice
func IsAffirmation(text string) bool {
	lower := strings.ToLower(text)
	for _, token := range affirmations {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func affirmed(_ context.Context, input string) bool {
	return IsAffirmation(input)
}

// NewStateMachine builds the conversation stage machine positioned at INITIAL
func NewStateMachine() domainconv.StateMachine {
	b := domainconv.NewBuilder()

	b.Configure(domainconv.StageInitial).
		Permit(domainconv.TriggerNeedMore, domainconv.StageCollecting).
		Permit(domainconv.TriggerReady, domainconv.StageConfirming).
		Permit(domainconv.TriggerReset, domainconv.StageInitial)

	b.Configure(domainconv.StageCollecting).
		Permit(domainconv.TriggerNeedMore, domainconv.StageCollecting).
		Permit(domainconv.TriggerReady, domainconv.StageConfirming).
		Permit(domainconv.TriggerReset, domainconv.StageInitial)

	// A non-affirmative answer is handled as a brand new request through RESTART
	b.Configure(domainconv.StageConfirming).
		PermitIf(domainconv.TriggerConfirm, domainconv.StageGenerating, affirmed).
		Permit(domainconv.TriggerRestart, domainconv.StageInitial).
		Permit(domainconv.TriggerReset, domainconv.StageInitial)

	// GENERATING has no RESET: a clear must wait for the submission to finish
	b.Configure(domainconv.StageGenerating).
		Permit(domainconv.TriggerSubmitted, domainconv.StageCompleted)

	b.Configure(domainconv.StageCompleted).
		Permit(domainconv.TriggerRestart, domainconv.StageInitial).
		Permit(domainconv.TriggerReset, domainconv.StageInitial)

	return b.Build(domainconv.StageInitial)
}

// Extractor turns an utterance into a partial invoice record
type Extractor interface {
	Extract(text string) invoice.Result
}

// Publisher receives conversation events
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Options tunes controller behaviour
type Options struct {
	// TestModeDefaults fills missing fields with sample data when the user asks for a test invoice
	TestModeDefaults bool
	// SubmitTimeout bounds a single submission; zero means no limit beyond the caller's context
	SubmitTimeout time.Duration
}

// Dependencies are shared by every controller a Factory creates
type Dependencies struct {
	Extractor Extractor
	Invoicing port.InvoicingService
	Publisher Publisher
	Logger    *zap.Logger
	Options   Options
	Now       func() time.Time
}

// Factory creates a controller for a session id
type Factory func(id string) *Controller

// NewFactory returns a Factory wired with deps
func NewFactory(deps Dependencies) Factory {
	return func(id string) *Controller {
		return NewController(id, deps)
	}
}

type nopPublisher struct{}

func (nopPublisher) DispatchAsync(context.Context, *event.Event) {}
