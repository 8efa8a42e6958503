package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
)

// ReportCache persists generated reports keyed by report id so they can be
// re-rendered after the originating request completes.
type ReportCache struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportCache creates a new ReportCache instance
func NewReportCache(db *BadgerDB, logger arbor.ILogger) interfaces.ReportCache {
	return &ReportCache{
		db:     db,
		logger: logger,
	}
}

var _ interfaces.ReportCache = (*ReportCache)(nil)

// SaveReport stores a generated report. GeneratedAt is stamped here when
// the caller leaves it zero.
func (c *ReportCache) SaveReport(ctx context.Context, report *models.CachedReport) error {
	if report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}

	if err := c.db.Store().Upsert(report.ID, report); err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	c.logger.Debug().Str("report_id", report.ID).Msg("Cached generated report")
	return nil
}

// GetReport retrieves a cached report by id
func (c *ReportCache) GetReport(ctx context.Context, id string) (*models.CachedReport, error) {
	var report models.CachedReport
	err := c.db.Store().Get(id, &report)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return &report, nil
}
