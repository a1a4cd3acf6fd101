// Package conversation drives the invoice chat: it merges extracted fields across turns,
// asks for what is missing, confirms and submits.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/factura-chat/internal/application/port"
	domainconv "github.com/garyjia/factura-chat/internal/domain/conversation"
	"github.com/garyjia/factura-chat/internal/domain/entity"
	"github.com/garyjia/factura-chat/internal/domain/event"
	"github.com/garyjia/factura-chat/internal/invoice"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a message arrives while the previous one is still being processed
	ErrBusy = errors.New("conversation is processing another message")

	// ErrEmptyMessage is returned for blank input
	ErrEmptyMessage = errors.New("message is empty")
)

// State is a point-in-time copy of a conversation
type State struct {
	ID          string                `json:"id"`
	Messages    []entity.ChatTurn     `json:"messages"`
	Record      entity.InvoiceRecord  `json:"record"`
	Stage       domainconv.Stage      `json:"stage"`
	Processing  bool                  `json:"processing"`
	DemoMode    bool                  `json:"demoMode"`
	LastInvoice *entity.IssuedInvoice `json:"lastInvoice,omitempty"`
}

// Controller owns one conversation. Send calls are serialised by the processing flag;
// mu guards the fields State reads so snapshots stay consistent during a submission.
type Controller struct {
	id        string
	extractor Extractor
	invoicing port.InvoicingService
	publisher Publisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	processing atomic.Bool

	mu          sync.Mutex
	machine     domainconv.StateMachine
	messages    []entity.ChatTurn
	record      entity.InvoiceRecord
	demo        bool
	lastInvoice *entity.IssuedInvoice
	lastActive  time.Time
}

// NewController creates a conversation in the INITIAL stage
func NewController(id string, deps Dependencies) *Controller {
	c := &Controller{
		id:        id,
		extractor: deps.Extractor,
		invoicing: deps.Invoicing,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		opts:      deps.Options,
		now:       deps.Now,
		machine:   NewStateMachine(),
	}
	if c.extractor == nil {
		c.extractor = invoice.NewExtractor(deps.Logger)
	}
	if c.publisher == nil {
		c.publisher = nopPublisher{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With(zap.String("session_id", id))
	c.lastActive = c.now()

	c.machine.OnTransition(func(ctx context.Context, from, to domainconv.Stage, trigger domainconv.Trigger) {
		c.logger.Debug("Stage changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("trigger", trigger.String()))
		c.publish(ctx, event.TypeStageChanged, map[string]any{
			"from":    from.String(),
			"to":      to.String(),
			"trigger": trigger.String(),
		})
	})

	return c
}

// ID returns the session id
func (c *Controller) ID() string {
	return c.id
}

// Start probes the billing backend once. An unhealthy backend switches the
// conversation to demo mode; it never prevents the user from chatting.
func (c *Controller) Start(ctx context.Context) {
	healthy := false
	if c.invoicing != nil {
		status, err := c.invoicing.CheckHealth(ctx)
		healthy = err == nil && status != nil && status.Success
	}

	c.mu.Lock()
	c.demo = !healthy
	if !healthy {
		c.appendTurn(entity.SpeakerAssistant, MsgOffline, nil)
	}
	c.mu.Unlock()

	c.logger.Info("Conversation started", zap.Bool("demo_mode", !healthy))
	c.publish(ctx, event.TypeSessionStarted, map[string]any{"demo": !healthy})
}

// State returns a snapshot of the conversation
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Processing reports whether a message is being handled right now
func (c *Controller) Processing() bool {
	return c.processing.Load()
}

// LastActive returns when the user last interacted with the conversation
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Send handles one user utterance and returns the resulting state.
// ErrBusy is returned, and the text discarded, while a previous message is in flight.
func (c *Controller) Send(ctx context.Context, text string) (st State, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.State(), ErrEmptyMessage
	}
	if !c.processing.CompareAndSwap(false, true) {
		return c.State(), ErrBusy
	}

	defer func() {
		if r := recover(); r != nil {
			c.recoverFromPanic(ctx, r)
			err = nil
		}
		c.processing.Store(false)
		st = c.State()
	}()

	c.mu.Lock()
	c.lastActive = c.now()
	c.appendTurn(entity.SpeakerUser, text, nil)
	stage := c.machine.Stage()
	c.mu.Unlock()

	if stage == domainconv.StageConfirming {
		c.mu.Lock()
		err := c.machine.Fire(ctx, domainconv.TriggerConfirm, text)
		c.mu.Unlock()

		if err == nil {
			c.submit(ctx)
			return st, nil
		}
		if !errors.Is(err, domainconv.ErrGuardFailed) {
			return st, err
		}
	}

	return st, c.collect(ctx, text, stage)
}

// collect runs extraction and moves to CONFIRMING or COLLECTING.
// Extraction failures leave the stage untouched.
func (c *Controller) collect(ctx context.Context, text string, stage domainconv.Stage) error {
	result, err := c.safeExtract(text)
	if err != nil {
		c.logger.Error("Extraction failed", zap.Error(err))
		c.reply(MsgExtractionError, nil)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.record
	if stage != domainconv.StageCollecting {
		if stage != domainconv.StageInitial {
			if err := c.machine.Fire(ctx, domainconv.TriggerRestart, text); err != nil {
				return err
			}
		}
		base = entity.InvoiceRecord{}
		c.lastInvoice = nil
	}

	record := entity.Merge(base, result.Record)
	if c.opts.TestModeDefaults && invoice.IsTestRequest(text) {
		record = invoice.WithTestDefaults(record)
	}
	c.record = record

	if record.Submittable() {
		if err := c.machine.Fire(ctx, domainconv.TriggerReady, text); err != nil {
			return err
		}
		c.appendTurn(entity.SpeakerAssistant, confirmationSummary(record), &record)
		return nil
	}

	if err := c.machine.Fire(ctx, domainconv.TriggerNeedMore, text); err != nil {
		return err
	}
	c.appendTurn(entity.SpeakerAssistant, needMoreSummary(record, invoice.MissingFields(record)), nil)
	return nil
}

func (c *Controller) safeExtract(text string) (result invoice.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return c.extractor.Extract(text), nil
}

// submit sends the accumulated record and always ends in COMPLETED with the record cleared
func (c *Controller) submit(ctx context.Context) {
	c.reply(MsgProcessing, nil)

	c.mu.Lock()
	record := c.record.Clone()
	demo := c.demo
	c.mu.Unlock()

	result, err := c.doSubmit(ctx, record)

	var msg string
	switch {
	case err != nil:
		c.logger.Error("Invoice submission failed", zap.Error(err))
		msg = unexpectedErrorPrefix + err.Error()
		c.publish(ctx, event.TypeSubmissionFailed, map[string]any{"error": err.Error()})
	case result == nil || !result.Success || result.Invoice == nil:
		reason := ""
		if result != nil {
			reason = result.Error
		}
		c.logger.Info("Invoice rejected", zap.String("reason", reason))
		msg = submissionFailedMessage(reason)
		c.publish(ctx, event.TypeSubmissionFailed, map[string]any{"error": reason})
	default:
		c.logger.Info("Invoice issued", zap.String("number", result.Invoice.Number), zap.Bool("demo", demo))
		msg = issuedMessage(result.Invoice, demo)
		c.publish(ctx, event.TypeInvoiceIssued, map[string]any{
			"number": result.Invoice.Number,
			"amount": result.Invoice.Amount.String(),
			"demo":   demo,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && result != nil && result.Success {
		c.lastInvoice = result.Invoice
	}
	c.finishSubmissionLocked(ctx, msg)
}

func (c *Controller) doSubmit(ctx context.Context, record entity.InvoiceRecord) (*entity.InvoiceResult, error) {
	if c.invoicing == nil {
		return nil, errors.New("invoicing service not configured")
	}
	if c.opts.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SubmitTimeout)
		defer cancel()
	}
	return c.invoicing.Submit(ctx, record)
}

func (c *Controller) finishSubmissionLocked(ctx context.Context, msg string) {
	c.record = entity.InvoiceRecord{}
	if err := c.machine.Fire(ctx, domainconv.TriggerSubmitted, ""); err != nil {
		c.logger.Error("Unexpected stage after submission", zap.Error(err))
	}
	c.appendTurn(entity.SpeakerAssistant, msg, nil)
}

func (c *Controller) recoverFromPanic(ctx context.Context, r any) {
	c.logger.Error("Recovered from panic while handling message", zap.Any("panic", r))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine.Stage() == domainconv.StageGenerating {
		c.finishSubmissionLocked(ctx, unexpectedErrorPrefix+fmt.Sprint(r))
		return
	}
	c.appendTurn(entity.SpeakerAssistant, MsgExtractionError, nil)
}

// Reset clears messages, record and stage. Demo mode is kept: connectivity has not changed.
func (c *Controller) Reset(ctx context.Context) (State, error) {
	if !c.processing.CompareAndSwap(false, true) {
		return c.State(), ErrBusy
	}
	defer c.processing.Store(false)

	c.mu.Lock()
	if err := c.machine.Fire(ctx, domainconv.TriggerReset, ""); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	c.messages = nil
	c.record = entity.InvoiceRecord{}
	c.lastInvoice = nil
	c.lastActive = c.now()
	st := c.stateLocked()
	c.mu.Unlock()

	c.publish(ctx, event.TypeSessionCleared, nil)
	return st, nil
}

func (c *Controller) reply(text string, record *entity.InvoiceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendTurn(entity.SpeakerAssistant, text, record)
}

func (c *Controller) appendTurn(speaker entity.Speaker, text string, record *entity.InvoiceRecord) {
	turn := entity.NewChatTurn(speaker, text, record)
	turn.Timestamp = c.now()
	c.messages = append(c.messages, turn)
}

func (c *Controller) stateLocked() State {
	return State{
		ID:          c.id,
		Messages:    append([]entity.ChatTurn(nil), c.messages...),
		Record:      c.record.Clone(),
		Stage:       c.machine.Stage(),
		Processing:  c.processing.Load(),
		DemoMode:    c.demo,
		LastInvoice: c.lastInvoice,
	}
}

func (c *Controller) publish(ctx context.Context, typ event.Type, payload map[string]any) {
	c.publisher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(typ, c.id, payload))
}
