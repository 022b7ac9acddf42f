package runrepository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/plantguard-2025.net/internal/adapter/logging"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

func newRepo(t *testing.T) (*RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(sqlx.NewDb(db, "postgres"), "", logging.NewNopLogger()), mock
}

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID:      uuid.MustParse("6f1c2b1e-8f7a-4c55-9a55-0c2f3e8a1d10"),
		Success:    true,
		Message:    "2 of 2 cases passed",
		Root:       "plantcare",
		ClassName:  "utils",
		MethodName: "add",
		Meta:       domain.CaseMeta{Method: "add", Name: "sums"},
		Summary:    domain.ReportSummary{TotalCases: 2, PassedCases: 2, PassRate: "100.0%"},
		TestResults: []domain.ResultView{
			{ID: "1", Expected: 3.0, Actual: 3.0, Passed: true, Duration: "1ms"},
			{ID: "2", Expected: "x", Actual: nil, Passed: true, Duration: "0ms"},
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(sqlx.NewDb(db, "postgres"), "audit", logging.NewNopLogger())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS audit.unit_test_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	repo, mock := newRepo(t)
	report := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.unit_test_runs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM public.unit_test_results WHERE run_id = $1")).
		WithArgs(report.RunID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.unit_test_results")).
		WithArgs(
			report.RunID, 0, "1", "3", "3", true, int64(1), "",
			report.RunID, 1, "2", `"x"`, "null", true, int64(0), "",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveRun(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun_RollsBackOnFailure(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.unit_test_runs")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.SaveRun(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func runRows() *sqlmock.Rows {
	return sqlmock.NewRows(runColumns())
}

func TestGetRun(t *testing.T) {
	repo, mock := newRepo(t)
	report := sampleReport()

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_runs WHERE id = $1")).
		WithArgs(report.RunID).
		WillReturnRows(runRows().AddRow(
			report.RunID.String(), "plantcare", "utils", "add", true, "2 of 2 cases passed", "",
			2, 2, 0, "100.0%", []byte(`{"method":"add","name":"sums","description":""}`), report.CreatedAt,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_results WHERE run_id = $1 ORDER BY seq ASC")).
		WithArgs(report.RunID).
		WillReturnRows(sqlmock.NewRows(resultColumns()).
			AddRow(report.RunID.String(), 0, "1", []byte("3"), []byte("3"), true, 1, "").
			AddRow(report.RunID.String(), 1, "2", []byte(`"x"`), []byte("null"), false, 4, "boom"))

	got, err := repo.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, "sums", got.Meta.Name)
	assert.Equal(t, "100.0%", got.Summary.PassRate)
	require.Len(t, got.TestResults, 2)
	assert.Equal(t, 3.0, got.TestResults[0].Expected)
	assert.Equal(t, "1ms", got.TestResults[0].Duration)
	assert.Nil(t, got.TestResults[1].Actual)
	assert.Equal(t, "boom", got.TestResults[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun_NotFound(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(runRows())

	_, err := repo.GetRun(context.Background(), id)
	assert.ErrorIs(t, err, errs.RunNotFound)
}

func TestListRuns(t *testing.T) {
	repo, mock := newRepo(t)
	first, second := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_runs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(runRows().
			AddRow(first.String(), "plantcare", "utils", "add", true, "", "", 1, 1, 0, "100.0%", nil, now).
			AddRow(second.String(), "plantcare", "utils", "add", false, "no such module", "resolution_error", 0, 0, 0, "0%", nil, now.Add(-time.Minute)))

	reports, err := repo.ListRuns(context.Background(), domain.RunFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, first, reports[0].RunID)
	assert.Equal(t, "resolution_error", reports[1].ErrorType)
	assert.Nil(t, reports[0].TestResults)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns_Filtered(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_runs WHERE root = $1 AND method_name = $2 AND (success = $3 OR failed_cases > $4) ORDER BY created_at DESC LIMIT $5")).
		WithArgs("plantcare", "add", false, 0, 10).
		WillReturnRows(runRows())

	reports, err := repo.ListRuns(context.Background(), domain.RunFilter{
		Root:       "plantcare",
		MethodName: "add",
		Outcome:    domain.OutcomeFailed,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.unit_test_runs WHERE class_name = $1 AND success = $2 AND failed_cases = $3 ORDER BY created_at DESC")).
		WithArgs("utils", true, 0).
		WillReturnRows(runRows())

	_, err = repo.ListRuns(context.Background(), domain.RunFilter{ClassName: "utils", Outcome: domain.OutcomePassed})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRunsBefore(t *testing.T) {
	repo, mock := newRepo(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM public.unit_test_runs WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteRunsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseMillis(t *testing.T) {
	assert.Equal(t, int64(12), parseMillis("12ms"))
	assert.Equal(t, int64(0), parseMillis("soon"))
}
