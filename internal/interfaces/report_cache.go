package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/flashback/internal/models"
)

// ErrReportNotFound is returned when a cached report id does not exist
var ErrReportNotFound = errors.New("report not found")

// ReportCache stores generated reports so they can be re-rendered (for
// example as PDF) after the originating request has completed.
type ReportCache interface {
	SaveReport(ctx context.Context, report *models.CachedReport) error
	GetReport(ctx context.Context, id string) (*models.CachedReport, error)
}
