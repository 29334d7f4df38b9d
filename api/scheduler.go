/*
scheduler.go - Automated document expiry sweeper

PURPOSE:
  Periodically marks PENDING and APPROVED documents whose expiry date has
  passed as EXPIRED, so compliance evaluation puts them in the rejected
  bucket and the worker is asked for a fresh upload.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps once immediately on Start
  - Each sweep is a single DocumentService.ExpireDue call; per-document
    failures are logged there and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour, EXPIRY_SWEEP_INTERVAL)
  - Enabled: Whether the sweeper is active (false when the interval is 0)

USAGE:
  sweeper := NewExpirySweeper(handler.Documents, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - compliance/status.go: Expire
  - compliance/service.go: ExpireDue
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer expires every document past its expiry date.
// *compliance.DocumentService implements it.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpirySweeper runs Expirer.ExpireDue on a ticker.
type ExpirySweeper struct {
	Documents     Expirer
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a sweeper with a one hour interval.
func NewExpirySweeper(docs Expirer, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		Documents:     docs,
		Logger:        logger.Named("expiry"),
		CheckInterval: time.Hour,
		Enabled:       true,
	}
}

// Start begins sweeping. Calling Start on a running sweeper is a no-op.
func (s *ExpirySweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.Logger.Info("expiry sweeper disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("expiry sweeper started", zap.Duration("interval", s.CheckInterval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("expiry sweeper stopped")
}

func (s *ExpirySweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one sweep and returns how many documents expired.
func (s *ExpirySweeper) RunNow() int {
	n, err := s.Documents.ExpireDue(context.Background())
	if err != nil {
		s.Logger.Error("expiry sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.Logger.Info("expired documents", zap.Int("count", n))
	}
	return n
}
