package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the background scheduler
type SchedulerConfig struct {
	// RefreshInterval is how often every collection is re-fetched (default: 5m)
	RefreshInterval time.Duration

	// SweepInterval is how often overdue invoices are swept (default: 1h)
	SweepInterval time.Duration

	// ExportAfterRefresh writes the dashboard report after each refresh
	ExportAfterRefresh bool
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RefreshInterval:    5 * time.Minute,
		SweepInterval:      1 * time.Hour,
		ExportAfterRefresh: true,
	}
}

// Scheduler keeps the containers fresh and runs the overdue sweep on a
// fixed cadence.
type Scheduler struct {
	sync     *SyncService
	sweeper  *OverdueSweeper
	exporter *ReportExporter
	config   SchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler. sweeper and exporter may be nil.
func NewScheduler(sync *SyncService, sweeper *OverdueSweeper, exporter *ReportExporter, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		sync:     sync,
		sweeper:  sweeper,
		exporter: exporter,
		config:   config,
	}
}

// Start begins the scheduling loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.RefreshInterval <= 0 || s.config.SweepInterval <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("scheduler intervals must be positive")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Scheduler started",
		"refresh_interval", s.config.RefreshInterval,
		"sweep_interval", s.config.SweepInterval)

	return nil
}

// Stop signals the loop and waits for it to finish the current job.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Scheduler stop timed out")
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

	refreshTicker := time.NewTicker(s.config.RefreshInterval)
	defer refreshTicker.Stop()

	sweepTicker := time.NewTicker(s.config.SweepInterval)
	defer sweepTicker.Stop()

	// Refresh immediately on startup
	s.refresh(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			s.refresh(ctx)
		case <-sweepTicker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	if err := s.sync.RefreshAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled refresh failed", "error", err)
		return
	}
	if s.exporter == nil || !s.config.ExportAfterRefresh {
		return
	}
	if err := s.exporter.Export(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled export failed", "error", err)
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled sweep failed", "error", err)
	}
}
