// Package runrepository stores unit test runs in PostgreSQL
package runrepository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/ports/secondary"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
	querybuilder "gitlab.com/plantguard-2025.net/internal/utils"
)

//go:embed schema.sql
var schemaSQL string

var _ secondary.RunRepository = (*RunRepository)(nil)

// RunRepository implements the RunRepository interface with PostgreSQL
type RunRepository struct {
	db     *sqlx.DB
	schema string
	logger primary.Logger
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB, schema string, logger primary.Logger) *RunRepository {
	if schema == "" {
		schema = "public"
	}
	return &RunRepository{
		db:     db,
		schema: schema,
		logger: logger,
	}
}

// EnsureSchema creates the run tables if they do not exist
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{schema}}", r.schema)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		r.logger.Error("Failed to create unit test schema", "error", err)
		return fmt.Errorf("failed to create unit test schema: %w", err)
	}
	return nil
}

func runColumns() []string {
	t := domain.GetRunTable()
	return []string{t.ID, t.Root, t.ClassName, t.MethodName, t.Success, t.Message, t.ErrorType, t.Total, t.Passed, t.Failed, t.PassRate, t.Meta, t.CreatedAt}
}

func resultColumns() []string {
	t := domain.GetResultTable()
	return []string{t.RunID, t.Seq, t.CaseID, t.Expected, t.Actual, t.Passed, t.DurationMs, t.Error}
}

// SaveRun stores a report and replaces any results saved for it before
func (r *RunRepository) SaveRun(ctx context.Context, report *domain.Report) error {
	run, results, err := toRecords(report)
	if err != nil {
		r.logger.Error("Failed to encode unit test run", "runId", report.RunID, "error", err)
		return fmt.Errorf("failed to encode unit test run: %w", err)
	}

	runTbl := domain.GetRunTable()
	resTbl := domain.GetResultTable()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if the transaction is committed

	query, args := querybuilder.NewQueryBuilder(r.schema).
		Insert(runColumns()...).
		Into(runTbl.TableName()).
		Values(run.ID, run.Root, run.ClassName, run.MethodName, run.Success, run.Message, run.ErrorType,
			run.Total, run.Passed, run.Failed, run.PassRate, string(run.Meta), run.CreatedAt).
		OnConflict(runTbl.ID).
		SetExclude(runTbl.Success, runTbl.Message, runTbl.ErrorType, runTbl.Total, runTbl.Passed, runTbl.Failed, runTbl.PassRate, runTbl.Meta).
		Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to save unit test run", "runId", report.RunID, "error", err)
		return fmt.Errorf("failed to save unit test run: %w", err)
	}

	query, args = querybuilder.NewQueryBuilder(r.schema).
		Delete(resTbl.TableName()).
		Where(resTbl.RunID+" = ?", run.ID).
		Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to clear unit test results", "runId", report.RunID, "error", err)
		return fmt.Errorf("failed to clear unit test results: %w", err)
	}

	if len(results) > 0 {
		qb := querybuilder.NewQueryBuilder(r.schema).
			Insert(resultColumns()...).
			Into(resTbl.TableName())
		for _, res := range results {
			// jsonb columns take text, not bytea
			qb.Values(res.RunID, res.Seq, res.CaseID, string(res.Expected), string(res.Actual), res.Passed, res.DurationMs, res.Error)
		}
		query, args = qb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.Error("Failed to save unit test results", "runId", report.RunID, "error", err)
			return fmt.Errorf("failed to save unit test results: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a report with its results
func (r *RunRepository) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	runTbl := domain.GetRunTable()
	resTbl := domain.GetResultTable()

	query, args := querybuilder.NewQueryBuilder(r.schema).
		Select(runColumns()...).
		From(runTbl.TableName()).
		Where(runTbl.ID+" = ?", runID).
		Build()

	var run domain.RunRecord
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.RunNotFound
		}
		r.logger.Error("Failed to get unit test run", "runId", runID, "error", err)
		return nil, fmt.Errorf("failed to get unit test run: %w", err)
	}

	query, args = querybuilder.NewQueryBuilder(r.schema).
		Select(resultColumns()...).
		From(resTbl.TableName()).
		Where(resTbl.RunID+" = ?", runID).
		OrderBy(resTbl.Seq, true).
		Build()

	var results []domain.ResultRecord
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.Error("Failed to get unit test results", "runId", runID, "error", err)
		return nil, fmt.Errorf("failed to get unit test results: %w", err)
	}

	return fromRecords(run, results)
}

// ListRuns retrieves the newest report headers matching filter
func (r *RunRepository) ListRuns(ctx context.Context, filter domain.RunFilter) ([]*domain.Report, error) {
	runTbl := domain.GetRunTable()
	qb := querybuilder.NewQueryBuilder(r.schema).
		Select(runColumns()...).
		From(runTbl.TableName())
	if filter.Root != "" {
		qb.Where(runTbl.Root+" = ?", filter.Root)
	}
	if filter.ClassName != "" {
		qb.Where(runTbl.ClassName+" = ?", filter.ClassName)
	}
	if filter.MethodName != "" {
		qb.Where(runTbl.MethodName+" = ?", filter.MethodName)
	}
	switch filter.Outcome {
	case domain.OutcomePassed:
		qb.Where(runTbl.Success+" = ?", true).And(runTbl.Failed+" = ?", 0)
	case domain.OutcomeFailed:
		// an aborted run has no failed cases but still counts as failed
		qb.AndGroup(func(g querybuilder.QueryBuilder) {
			g.Where(runTbl.Success+" = ?", false).Or(runTbl.Failed+" > ?", 0)
		})
	}
	query, args := qb.
		OrderBy(runTbl.CreatedAt, false).
		Limit(filter.Limit).
		Build()

	var runs []domain.RunRecord
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.Error("Failed to list unit test runs", "error", err)
		return nil, fmt.Errorf("failed to list unit test runs: %w", err)
	}

	reports := make([]*domain.Report, 0, len(runs))
	for _, run := range runs {
		report, err := fromRecords(run, nil)
		if err != nil {
			return nil, err
		}
		report.TestResults = nil
		reports = append(reports, report)
	}
	return reports, nil
}

// DeleteRunsBefore removes runs created before cutoff; their results go with them
func (r *RunRepository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	runTbl := domain.GetRunTable()
	query, args := querybuilder.NewQueryBuilder(r.schema).
		Delete(runTbl.TableName()).
		Where(runTbl.CreatedAt+" < ?", cutoff).
		Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete unit test runs", "error", err)
		return 0, fmt.Errorf("failed to delete unit test runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return n, nil
}

func toRecords(report *domain.Report) (domain.RunRecord, []domain.ResultRecord, error) {
	meta, err := json.Marshal(report.Meta)
	if err != nil {
		return domain.RunRecord{}, nil, err
	}
	run := domain.RunRecord{
		ID:         report.RunID,
		Root:       report.Root,
		ClassName:  report.ClassName,
		MethodName: report.MethodName,
		Success:    report.Success,
		Message:    report.Message,
		ErrorType:  report.ErrorType,
		Total:      report.Summary.TotalCases,
		Passed:     report.Summary.PassedCases,
		Failed:     report.Summary.FailedCases,
		PassRate:   report.Summary.PassRate,
		Meta:       meta,
		CreatedAt:  report.CreatedAt,
	}

	results := make([]domain.ResultRecord, 0, len(report.TestResults))
	for i, v := range report.TestResults {
		expected, err := json.Marshal(v.Expected)
		if err != nil {
			return domain.RunRecord{}, nil, fmt.Errorf("case %s expected: %w", v.ID, err)
		}
		actual, err := json.Marshal(v.Actual)
		if err != nil {
			return domain.RunRecord{}, nil, fmt.Errorf("case %s actual: %w", v.ID, err)
		}
		results = append(results, domain.ResultRecord{
			RunID:      report.RunID,
			Seq:        i,
			CaseID:     v.ID,
			Expected:   expected,
			Actual:     actual,
			Passed:     v.Passed,
			DurationMs: parseMillis(v.Duration),
			Error:      v.Error,
		})
	}
	return run, results, nil
}

func fromRecords(run domain.RunRecord, results []domain.ResultRecord) (*domain.Report, error) {
	report := &domain.Report{
		RunID:      run.ID,
		Success:    run.Success,
		Message:    run.Message,
		ErrorType:  run.ErrorType,
		Root:       run.Root,
		ClassName:  run.ClassName,
		MethodName: run.MethodName,
		Summary: domain.ReportSummary{
			TotalCases:  run.Total,
			PassedCases: run.Passed,
			FailedCases: run.Failed,
			PassRate:    run.PassRate,
		},
		TestResults: make([]domain.ResultView, 0, len(results)),
		CreatedAt:   run.CreatedAt,
	}
	if len(run.Meta) > 0 {
		if err := json.Unmarshal(run.Meta, &report.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode run meta: %w", err)
		}
	}
	for _, res := range results {
		view := domain.ResultView{
			ID:       res.CaseID,
			Passed:   res.Passed,
			Duration: strconv.FormatInt(res.DurationMs, 10) + "ms",
			Error:    res.Error,
		}
		if err := decodeJSON(res.Expected, &view.Expected); err != nil {
			return nil, fmt.Errorf("failed to decode case %s: %w", res.CaseID, err)
		}
		if err := decodeJSON(res.Actual, &view.Actual); err != nil {
			return nil, fmt.Errorf("failed to decode case %s: %w", res.CaseID, err)
		}
		report.TestResults = append(report.TestResults, view)
	}
	return report, nil
}

func decodeJSON(raw []byte, out *interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func parseMillis(d string) int64 {
	n, err := strconv.ParseInt(strings.TrimSuffix(d, "ms"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
