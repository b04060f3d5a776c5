// Package scheduler runs the background archival scan on an interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/backoffice/backend/internal/application/archival"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ArchivalScheduler triggers periodic archival scans over the configured
// entity types
type ArchivalScheduler struct {
	engine    *archival.Engine
	logger    *zap.Logger
	config    config.SchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewArchivalScheduler creates a new archival scheduler
func NewArchivalScheduler(engine *archival.Engine, cfg config.SchedulerConfig, logger *zap.Logger) *ArchivalScheduler {
	return &ArchivalScheduler{
		engine: engine,
		logger: logger,
		config: cfg,
	}
}

// Start starts the archival scan loop
func (s *ArchivalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Archival scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runScans(ctx)

	s.logger.Info("Archival scheduler started",
		zap.Duration("scan_interval", s.config.ScanInterval),
		zap.Strings("entity_types", s.config.EntityTypes),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *ArchivalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Archival scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Archival scheduler stop timed out")
		return ctx.Err()
	}
}

// runScans triggers one scan pass per interval tick
func (s *ArchivalScheduler) runScans(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Archival scan loop stopping")
			return
		case <-ticker.C:
			s.executeScanPass(ctx)
		}
	}
}

// executeScanPass runs one scan per configured entity type
func (s *ArchivalScheduler) executeScanPass(ctx context.Context) {
	asOf := time.Now().UTC()

	for _, entityType := range s.config.EntityTypes {
		if ctx.Err() != nil {
			return
		}

		report, err := s.engine.ScanAndArchive(ctx, entityType, asOf)
		if err != nil {
			s.logger.Error("Scheduled archival scan failed",
				zap.String("entity_type", entityType),
				zap.Error(err))
			continue
		}
		s.logger.Info("Scheduled archival scan completed",
			zap.String("entity_type", entityType),
			zap.Int("scanned", report.Scanned),
			zap.Int("archived", report.Archived),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
			zap.Bool("cancelled", report.Cancelled),
			zap.Duration("elapsed", report.Elapsed))
	}
}
