package unittest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/ports/secondary"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/engine/executor"
	"gitlab.com/plantguard-2025.net/internal/engine/loader"
	"gitlab.com/plantguard-2025.net/internal/engine/mock"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/engine/resolver"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

var _ IUnitTestService = (*UnitTestService)(nil)

// UnitTestService implements the IUnitTestService interface
type UnitTestService struct {
	catalog  *project.Catalog
	runs     secondary.RunRepository
	cache    secondary.ReportCache
	executor *executor.Executor
	logger   primary.Logger
	cfg      *config.UnitTestConfig
	now      func() time.Time

	// runs patch the shared project, so only one may execute at a time
	runMu sync.Mutex
}

// NewUnitTestService creates a new unit test service. runs and cache may be
// nil, in which case reports are only returned, not kept.
func NewUnitTestService(
	catalog *project.Catalog,
	runs secondary.RunRepository,
	cache secondary.ReportCache,
	cfg *config.UnitTestConfig,
	logger primary.Logger,
) *UnitTestService {
	mode, err := mock.ParseMode(cfg.MockMode)
	if err != nil {
		logger.Warn("Unknown mock mode, using explicit", "mode", cfg.MockMode, "error", err)
	}
	return &UnitTestService{
		catalog: catalog,
		runs:    runs,
		cache:   cache,
		executor: executor.New(
			executor.WithTimeout(cfg.CaseTimeout),
			executor.WithLogger(logger),
			executor.WithInstaller(mock.NewInstaller(mode, logger)),
		),
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

type runSettings struct {
	progress func(done, total int, result domain.ExecutionResult)
}

type RunOption func(*runSettings)

// WithProgress reports every finished case.
func WithProgress(fn func(done, total int, result domain.ExecutionResult)) RunOption {
	return func(s *runSettings) {
		s.progress = fn
	}
}

// Run executes a table against the described target
func (s *UnitTestService) Run(ctx context.Context, desc domain.InvocationDescriptor, table domain.Table, opts ...RunOption) *domain.Report {
	settings := &runSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	report := &domain.Report{
		RunID:       uuid.New(),
		Root:        desc.Root,
		ClassName:   desc.ClassName,
		MethodName:  desc.MethodName,
		TestResults: []domain.ResultView{},
		CreatedAt:   s.now().UTC(),
	}
	s.logger.Info("Starting unit test run",
		"runId", report.RunID,
		"root", desc.Root,
		"class", desc.ClassName,
		"method", desc.MethodName)

	summary, meta, err := s.execute(ctx, desc, table, settings)
	if err != nil {
		kind := errs.KindOf(err)
		s.logger.Error("Unit test run failed", "runId", report.RunID, "errorType", kind.String(), "error", err)
		report.Success = false
		report.Message = err.Error()
		report.ErrorType = kind.String()
		report.Summary = domain.ReportSummary{PassRate: executor.PassRate(0, 0)}
	} else {
		report.Success = true
		report.Meta = meta
		report.Message = fmt.Sprintf("Executed %d test cases: %d passed, %d failed", summary.Total, summary.Passed, summary.Failed)
		report.Summary = domain.ReportSummary{
			TotalCases:  summary.Total,
			PassedCases: summary.Passed,
			FailedCases: summary.Failed,
			PassRate:    summary.PassRate,
		}
		for _, r := range summary.Results {
			report.TestResults = append(report.TestResults, toView(r))
		}
		s.logger.Info("Unit test run finished",
			"runId", report.RunID,
			"total", summary.Total,
			"passed", summary.Passed,
			"passRate", summary.PassRate)
	}

	s.keep(ctx, report)
	return report
}

func (s *UnitTestService) execute(ctx context.Context, desc domain.InvocationDescriptor, table domain.Table, settings *runSettings) (*domain.RunSummary, domain.CaseMeta, error) {
	batch, err := loader.Load(table)
	if err != nil {
		return nil, domain.CaseMeta{}, err
	}

	rc, err := resolver.NewContext(s.catalog, desc.Root)
	if err != nil {
		return nil, domain.CaseMeta{}, err
	}
	defer rc.Close()

	target, err := rc.Resolve(desc.ClassName, desc.MethodName)
	if err != nil {
		return nil, domain.CaseMeta{}, err
	}

	mocks, err := mock.ParseSpec(desc.MockConfig)
	if err != nil {
		return nil, domain.CaseMeta{}, errs.MockInstall(err, "invalid mock_config")
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	summary, err := s.executor.Run(ctx, rc, target, batch, mocks, executor.RunOptions{
		StopOnFailure: desc.StopOnFailure,
		OnResult: func(index, total int, r domain.ExecutionResult) {
			if settings.progress != nil {
				settings.progress(index+1, total, r)
			}
		},
	})
	if err != nil {
		return nil, domain.CaseMeta{}, err
	}
	return summary, batch.Meta, nil
}

// keep persists and caches a report. Failures are logged, never returned:
// the caller already has the report.
func (s *UnitTestService) keep(ctx context.Context, report *domain.Report) {
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, report); err != nil {
			s.logger.Error("Failed to persist unit test run", "runId", report.RunID, "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.SetReport(ctx, report); err != nil {
			s.logger.Warn("Failed to cache unit test run", "runId", report.RunID, "error", err)
		}
	}
}

// GetReport retrieves a run, preferring the cache
func (s *UnitTestService) GetReport(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	if s.cache != nil {
		report, err := s.cache.GetReport(ctx, runID)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, errs.RunNotFound) {
			s.logger.Warn("Failed to read report cache", "runId", runID, "error", err)
		}
	}
	if s.runs == nil {
		return nil, errs.RunNotFound
	}

	report, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, errs.RunNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to get unit test run", "runId", runID, "error", err)
		return nil, fmt.Errorf("failed to get unit test run: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetReport(ctx, report); err != nil {
			s.logger.Warn("Failed to cache unit test run", "runId", runID, "error", err)
		}
	}
	return report, nil
}

// ListReports retrieves the newest runs matching filter
func (s *UnitTestService) ListReports(ctx context.Context, filter domain.RunFilter) ([]*domain.Report, error) {
	if filter.Limit <= 0 || filter.Limit > s.cfg.HistoryLimit {
		filter.Limit = s.cfg.HistoryLimit
	}
	if s.runs != nil {
		reports, err := s.runs.ListRuns(ctx, filter)
		if err != nil {
			s.logger.Error("Failed to list unit test runs", "error", err)
			return nil, fmt.Errorf("failed to list unit test runs: %w", err)
		}
		return reports, nil
	}
	if s.cache == nil {
		return []*domain.Report{}, nil
	}

	// the filter is applied here, so scan the whole recent index
	ids, err := s.cache.RecentRunIDs(ctx, 0)
	if err != nil {
		s.logger.Error("Failed to list cached runs", "error", err)
		return nil, fmt.Errorf("failed to list cached runs: %w", err)
	}
	reports := make([]*domain.Report, 0, filter.Limit)
	for _, id := range ids {
		if len(reports) == filter.Limit {
			break
		}
		report, err := s.cache.GetReport(ctx, id)
		if err != nil {
			// expired entries stay in the recent index until trimmed
			continue
		}
		if !filter.Matches(report) {
			continue
		}
		header := *report
		header.TestResults = nil
		reports = append(reports, &header)
	}
	return reports, nil
}

// ListTargets lists the addressable members of one or all project roots
func (s *UnitTestService) ListTargets(ctx context.Context, root string) ([]domain.TargetInfo, error) {
	roots := s.catalog.Names()
	if root != "" {
		p, err := s.catalog.Get(root)
		if err != nil {
			return nil, errs.Resolution(err, "cannot open project root %q", root)
		}
		roots = []string{p.Name}
	}

	var out []domain.TargetInfo
	for _, name := range roots {
		p, err := s.catalog.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, describe(p)...)
	}
	return out, nil
}

func describe(p *project.Project) []domain.TargetInfo {
	var out []domain.TargetInfo
	for _, path := range p.ModulePaths() {
		m, err := p.Import(path)
		if err != nil {
			continue
		}
		for _, fn := range m.FuncNames() {
			f, _ := m.Func(fn)
			out = append(out, domain.TargetInfo{
				Root:       p.Name,
				ClassName:  path,
				MethodName: fn,
				Kind:       resolver.ModuleFunction.String(),
				IsAsync:    f.IsAsync(),
				Params:     f.Params,
			})
		}
		for _, cn := range m.ClassNames() {
			c, _ := m.Class(cn)
			for _, mn := range c.MethodNames() {
				meth, _ := c.Method(mn)
				out = append(out, domain.TargetInfo{
					Root:       p.Name,
					ClassName:  c.QualifiedName(),
					MethodName: mn,
					Kind:       meth.Kind.String(),
					IsAsync:    meth.IsAsync(),
					Params:     meth.Params,
				})
			}
		}
	}
	return out
}

func toView(r domain.ExecutionResult) domain.ResultView {
	return domain.ResultView{
		ID:       r.ID,
		Expected: jsonSafe(r.Expected),
		Actual:   jsonSafe(r.Actual),
		Passed:   r.Passed,
		Duration: executor.FormatDuration(r.Duration),
		Error:    r.Error,
	}
}

// jsonSafe keeps values that encode as JSON and stringifies the rest.
func jsonSafe(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
