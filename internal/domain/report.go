package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is the envelope returned for every run, successful or not
type Report struct {
	RunID       uuid.UUID     `json:"run_id"`
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	ErrorType   string        `json:"error_type,omitempty"`
	Root        string        `json:"root"`
	ClassName   string        `json:"class_name"`
	MethodName  string        `json:"method_name"`
	Meta        CaseMeta      `json:"meta"`
	Summary     ReportSummary `json:"summary"`
	TestResults []ResultView  `json:"test_results"`
	CreatedAt   time.Time     `json:"created_at"`
}

const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// RunFilter narrows run history. Empty fields match every run.
type RunFilter struct {
	Root       string
	ClassName  string
	MethodName string
	// Outcome is OutcomePassed, OutcomeFailed or empty
	Outcome string
	Limit   int
}

// Failed reports whether the run aborted or any of its cases failed.
func (r *Report) Failed() bool {
	return !r.Success || r.Summary.FailedCases > 0
}

// Matches applies the filter to a report header; Limit is ignored.
func (f RunFilter) Matches(r *Report) bool {
	if f.Root != "" && r.Root != f.Root {
		return false
	}
	if f.ClassName != "" && r.ClassName != f.ClassName {
		return false
	}
	if f.MethodName != "" && r.MethodName != f.MethodName {
		return false
	}
	switch f.Outcome {
	case OutcomePassed:
		return !r.Failed()
	case OutcomeFailed:
		return r.Failed()
	}
	return true
}

type ReportSummary struct {
	TotalCases  int    `json:"total_cases"`
	PassedCases int    `json:"passed_cases"`
	FailedCases int    `json:"failed_cases"`
	PassRate    string `json:"pass_rate"`
}

type ResultView struct {
	ID       string      `json:"ID"`
	Expected interface{} `json:"Expected"`
	Actual   interface{} `json:"Actual"`
	Passed   bool        `json:"Passed"`
	Duration string      `json:"Duration"`
	Error    string      `json:"Error,omitempty"`
}

// RunRecord is the persisted header row of a run
type RunRecord struct {
	ID         uuid.UUID `db:"id"`
	Root       string    `db:"root"`
	ClassName  string    `db:"class_name"`
	MethodName string    `db:"method_name"`
	Success    bool      `db:"success"`
	Message    string    `db:"message"`
	ErrorType  string    `db:"error_type"`
	Total      int       `db:"total_cases"`
	Passed     int       `db:"passed_cases"`
	Failed     int       `db:"failed_cases"`
	PassRate   string    `db:"pass_rate"`
	Meta       []byte    `db:"meta"`
	CreatedAt  time.Time `db:"created_at"`
}

type RunTable struct {
	ID         string
	Root       string
	ClassName  string
	MethodName string
	Success    string
	Message    string
	ErrorType  string
	Total      string
	Passed     string
	Failed     string
	PassRate   string
	Meta       string
	CreatedAt  string
}

func GetRunTable() RunTable {
	return RunTable{
		ID:         "id",
		Root:       "root",
		ClassName:  "class_name",
		MethodName: "method_name",
		Success:    "success",
		Message:    "message",
		ErrorType:  "error_type",
		Total:      "total_cases",
		Passed:     "passed_cases",
		Failed:     "failed_cases",
		PassRate:   "pass_rate",
		Meta:       "meta",
		CreatedAt:  "created_at",
	}
}

func (RunTable) TableName() string {
	return "unit_test_runs"
}

// ResultRecord is one persisted case result
type ResultRecord struct {
	RunID      uuid.UUID `db:"run_id"`
	Seq        int       `db:"seq"`
	CaseID     string    `db:"case_id"`
	Expected   []byte    `db:"expected"`
	Actual     []byte    `db:"actual"`
	Passed     bool      `db:"passed"`
	DurationMs int64     `db:"duration_ms"`
	Error      string    `db:"error"`
}

type ResultTable struct {
	RunID      string
	Seq        string
	CaseID     string
	Expected   string
	Actual     string
	Passed     string
	DurationMs string
	Error      string
}

func GetResultTable() ResultTable {
	return ResultTable{
		RunID:      "run_id",
		Seq:        "seq",
		CaseID:     "case_id",
		Expected:   "expected",
		Actual:     "actual",
		Passed:     "passed",
		DurationMs: "duration_ms",
		Error:      "error",
	}
}

func (ResultTable) TableName() string {
	return "unit_test_results"
}
