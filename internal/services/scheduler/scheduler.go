package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/common"
	"github.com/ternarybob/flashback/internal/services/ingest"
)

// Service runs the ingest drop directory scan on a cron schedule. An empty
// schedule disables it entirely.
type Service struct {
	ingestService *ingest.Service
	schedule      string
	cron          *cron.Cron
	logger        arbor.ILogger
	mu            sync.Mutex
	running       bool
	isProcessing  bool
}

// NewService creates a scheduler for periodic ingestion
func NewService(ingestService *ingest.Service, schedule string, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		ingestService: ingestService,
		schedule:      schedule,
		cron:          cron.New(),
		logger:        logger,
	}
}

// Start begins the schedule. Returns without starting when no schedule is
// configured.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.schedule == "" {
		s.logger.Debug().Msg("No ingest schedule configured, scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runIngest); err != nil {
		return fmt.Errorf("failed to add ingest cron job: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("Ingest scheduler started")
	return nil
}

// runIngest executes one scheduled scan. Overlapping runs are skipped.
func (s *Service) runIngest() {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous ingest run still in progress, skipping")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	result, err := s.ingestService.IngestDirectory(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled ingest failed")
		return
	}

	s.logger.Info().
		Int("files", result.FilesProcessed).
		Int("created", result.ArticlesCreated).
		Int("skipped", result.RowsSkipped).
		Msg("Scheduled ingest completed")
}

// Stop halts the schedule and waits for a running job to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Ingest scheduler stopped")
}

// IsRunning reports whether the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
