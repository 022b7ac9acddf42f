package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

// RunRepository persists finished test runs
type RunRepository interface {
	// SaveRun stores a report with all of its case results
	SaveRun(ctx context.Context, report *domain.Report) error

	// GetRun retrieves a full report by run ID
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.Report, error)

	// ListRuns retrieves the newest report headers matching filter, without
	// case results
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]*domain.Report, error)

	// DeleteRunsBefore removes runs created before cutoff and returns how many were removed
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReportCache keeps recent reports close at hand
type ReportCache interface {
	SetReport(ctx context.Context, report *domain.Report) error

	// GetReport returns errs.RunNotFound on a cache miss
	GetReport(ctx context.Context, runID uuid.UUID) (*domain.Report, error)

	// RecentRunIDs lists the newest cached run IDs, newest first
	RecentRunIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}
