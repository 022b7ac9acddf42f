package unittest

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

// IUnitTestService runs table-driven unit tests against registered projects
type IUnitTestService interface {
	// Run executes the table against the described target. It always returns
	// a report; failures are reported through Success, Message and ErrorType.
	Run(ctx context.Context, descriptor domain.InvocationDescriptor, table domain.Table, opts ...RunOption) *domain.Report

	// GetReport retrieves a finished run
	GetReport(ctx context.Context, runID uuid.UUID) (*domain.Report, error)

	// ListReports retrieves the newest runs matching filter, without case
	// results
	ListReports(ctx context.Context, filter domain.RunFilter) ([]*domain.Report, error)

	// ListTargets lists every addressable member of a project root, or of
	// all roots when root is empty
	ListTargets(ctx context.Context, root string) ([]domain.TargetInfo, error)
}
