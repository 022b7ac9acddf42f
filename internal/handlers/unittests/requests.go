package unittests

import (
	"gitlab.com/plantguard-2025.net/internal/domain"
)

// RunRequest is the JSON body of a run request
type RunRequest struct {
	domain.InvocationDescriptor
	Table domain.Table `json:"table"`
}

// ListReportsResponse wraps a page of run headers
type ListReportsResponse struct {
	Runs []*domain.Report `json:"runs"`
}

// ListTargetsResponse wraps the addressable targets of a root
type ListTargetsResponse struct {
	Targets []domain.TargetInfo `json:"targets"`
}
