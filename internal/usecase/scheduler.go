package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gurubamal/iimcat-sub002/pkg/config"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
)

// Scheduler runs the configured watchlist on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	uc      *RunUseCase
	req     RunRequest
	timeout time.Duration
	l       *logger.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(uc *RunUseCase, watchlist []config.WatchItem, loc *time.Location, timeout time.Duration, l *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = logger.Nop()
	}
	req := RunRequest{Tickers: make([]RunTicker, len(watchlist))}
	for i, w := range watchlist {
		req.Tickers[i] = RunTicker{Ticker: w.Ticker, Sector: w.Sector, BaseScore: w.BaseScore}
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		uc:      uc,
		req:     req,
		timeout: timeout,
		l:       l,
	}
}

// Start registers the cron expression and starts the cron loop.
func (s *Scheduler) Start(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.runOnce); err != nil {
		return fmt.Errorf("schedule %q: %w", expr, err)
	}
	s.cron.Start()
	s.l.Info("watchlist scheduled", logger.String("schedule", expr), logger.Int("tickers", len(s.req.Tickers)))
	return nil
}

// Stop waits for a run in progress.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runOnce skips a tick while the previous run is still going.
func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.l.Warn("previous scheduled run still in progress, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.uc.Run(ctx, s.req)
	if err != nil {
		s.l.Error("scheduled run failed", logger.Error(err))
		return
	}
	s.l.Info("scheduled run done", logger.RunID(res.RunID), logger.Int("decisions", len(res.Decisions)))
}
