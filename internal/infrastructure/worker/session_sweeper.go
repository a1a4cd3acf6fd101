package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired sessions and reports how many it dropped
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// SessionSweeper periodically expires idle chat sessions
type SessionSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	swept     int
}

// NewSessionSweeper creates a sweeper that runs every interval
func NewSessionSweeper(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Name implements Worker
func (s *SessionSweeper) Name() string {
	return "session-sweeper"
}

// Start begins the sweep loop in the background
func (s *SessionSweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("session sweeper: interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("session sweeper already running")
	}

	var loopCtx context.Context
	loopCtx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true

	s.logger.Info("SessionSweeper started", zap.Duration("interval", s.interval))
	go s.loop(loopCtx, s.done)
	return nil
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (s *SessionSweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("SessionSweeper stopped", zap.Int("swept_total", s.Swept()))
	return nil
}

// Swept returns how many sessions have been expired so far
func (s *SessionSweeper) Swept() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swept
}

func (s *SessionSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.sweeper.Sweep(ctx)
			if n == 0 {
				continue
			}
			s.mu.Lock()
			s.swept += n
			s.mu.Unlock()
			s.logger.Debug("Sessions swept", zap.Int("count", n))
		}
	}
}
