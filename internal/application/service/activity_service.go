package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/factura-chat/internal/application/dispatcher"
	"github.com/garyjia/factura-chat/internal/domain/event"
)

// Subscriber is the part of the dispatcher ActivityService needs
type Subscriber interface {
	Subscribe(eventType event.Type, name string, handler dispatcher.Handler)
}

// ActivityStats is a snapshot of chat activity since startup
type ActivityStats struct {
	SessionsStarted   int            `json:"sessionsStarted"`
	SessionsCleared   int            `json:"sessionsCleared"`
	SessionsExpired   int            `json:"sessionsExpired"`
	InvoicesIssued    int            `json:"invoicesIssued"`
	DemoInvoices      int            `json:"demoInvoices"`
	SubmissionsFailed int            `json:"submissionsFailed"`
	StageEntries      map[string]int `json:"stageEntries"`
	LastEventAt       string         `json:"lastEventAt,omitempty"`
}

// ActivityService keeps an audit log and counters of conversation events
type ActivityService struct {
	logger Logger

	mu    sync.Mutex
	stats ActivityStats
	last  time.Time
}

// NewActivityService creates an empty activity tracker
func NewActivityService(logger Logger) *ActivityService {
	return &ActivityService{
		logger: orNop(logger),
		stats:  ActivityStats{StageEntries: make(map[string]int)},
	}
}

// Register subscribes the tracker to every conversation event type
func (s *ActivityService) Register(sub Subscriber) {
	for _, t := range event.All {
		sub.Subscribe(t, "activity", s.Handle)
	}
}

// Handle records a single event
func (s *ActivityService) Handle(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch evt.Type {
	case event.TypeSessionStarted:
		s.stats.SessionsStarted++
	case event.TypeSessionCleared:
		s.stats.SessionsCleared++
	case event.TypeSessionExpired:
		s.stats.SessionsExpired++
	case event.TypeStageChanged:
		s.stats.StageEntries[evt.GetPayloadString("to")]++
	case event.TypeInvoiceIssued:
		s.stats.InvoicesIssued++
		if evt.GetPayloadBool("demo") {
			s.stats.DemoInvoices++
		}
		s.logger.Info("Invoice issued from chat",
			"session_id", evt.SessionID,
			"number", evt.GetPayloadString("number"),
			"amount", evt.GetPayloadString("amount"))
	case event.TypeSubmissionFailed:
		s.stats.SubmissionsFailed++
		s.logger.Error("Chat submission failed",
			"session_id", evt.SessionID,
			"error", evt.GetPayloadString("error"))
	}

	if evt.Timestamp.After(s.last) {
		s.last = evt.Timestamp
	}
	return nil
}

// Stats returns a copy of the counters
func (s *ActivityService) Stats() ActivityStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.StageEntries = make(map[string]int, len(s.stats.StageEntries))
	for k, v := range s.stats.StageEntries {
		out.StageEntries[k] = v
	}
	if !s.last.IsZero() {
		out.LastEventAt = s.last.UTC().Format(time.RFC3339)
	}
	return out
}
