package domain

import "time"

// ExecutionResult represents the outcome of a single test case
type ExecutionResult struct {
	ID       string
	Expected any
	Actual   any
	Passed   bool
	Duration time.Duration
	// Error and ErrorKind are set when the target failed or timed out
	Error     string
	ErrorKind string
	// Diff describes an expected/actual mismatch
	Diff string
}

// RunSummary aggregates the results of one run
type RunSummary struct {
	Total    int
	Passed   int
	Failed   int
	PassRate string
	Results  []ExecutionResult
}
