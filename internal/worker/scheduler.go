package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Exporter exports one year.
type Exporter interface {
	ExportYear(ctx context.Context, year int) error
}

// SchedulerConfig holds configuration for the periodic exporter
type SchedulerConfig struct {
	// Interval between exports of the current year (default: 1h)
	Interval time.Duration

	// Now returns the wall clock; tests replace it.
	Now func() time.Time
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Interval: time.Hour, Now: time.Now}
}

// Scheduler re-exports the current year on a fixed interval, so the sheet
// catches up even when AMQP requests are lost.
type Scheduler struct {
	exporter Exporter
	config   SchedulerConfig
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(exporter Exporter, config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{exporter: exporter, config: config, logger: logger}
}

// Start begins the export loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("export scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Export scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "Export scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Export scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Export immediately on startup
	s.exportCurrentYear(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportCurrentYear(ctx)
		}
	}
}

func (s *Scheduler) exportCurrentYear(ctx context.Context) {
	year := s.config.Now().Year()
	if err := s.exporter.ExportYear(ctx, year); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled export failed", "year", year, "error", err)
	}
}
