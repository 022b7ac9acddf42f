// Package executor runs a batch of test records against a resolved target.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/plantguard-2025.net/internal/adapter/logging"
	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/engine/coerce"
	"gitlab.com/plantguard-2025.net/internal/engine/mock"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/engine/resolver"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

const DefaultCaseTimeout = 30 * time.Second

type Executor struct {
	timeout   time.Duration
	logger    primary.Logger
	installer *mock.Installer
}

type Option func(*Executor)

// WithTimeout bounds every single case. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(logger primary.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithInstaller(installer *mock.Installer) Option {
	return func(e *Executor) {
		e.installer = installer
	}
}

func New(opts ...Option) *Executor {
	e := &Executor{timeout: DefaultCaseTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNopLogger()
	}
	if e.installer == nil {
		e.installer = mock.NewInstaller(mock.Explicit, e.logger)
	}
	return e
}

type RunOptions struct {
	StopOnFailure bool
	// OnResult is called after every case, in order.
	OnResult func(index, total int, result domain.ExecutionResult)
}

type prepared struct {
	record   domain.TestRecord
	kwargs   map[string]any
	args     []any
	expected any
}

// Run executes every record of batch against target, in table order. Errors
// returned are fatal to the run (coercion, mock installation, cancellation);
// failures of individual cases are reported in the summary.
func (e *Executor) Run(ctx context.Context, rc *resolver.Context, target *resolver.TargetSpec, batch *domain.CaseBatch, mocks mock.Spec, opts RunOptions) (*domain.RunSummary, error) {
	cases, err := e.prepare(rc, batch)
	if err != nil {
		return nil, err
	}

	p := rc.Project()
	if len(mocks) > 0 {
		if err := e.installer.Validate(p, mocks); err != nil {
			e.logger.Error("Failed to validate mocks", "error", err)
			return nil, err
		}
	}

	results := make([]domain.ExecutionResult, 0, len(cases))
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return Summarize(results), fmt.Errorf("run cancelled after %d of %d cases: %w", i, len(cases), err)
		}

		res, err := e.runCase(ctx, p, target, c, mocks)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if opts.OnResult != nil {
			opts.OnResult(i, len(cases), res)
		}
		if !res.Passed && opts.StopOnFailure {
			e.logger.Info("Stopping run after first failure", "target", target.Name, "case", res.ID, "executed", len(results))
			break
		}
	}
	return Summarize(results), nil
}

// prepare coerces every typed field of every record up front so that a bad
// cell aborts the run before any case executes.
func (e *Executor) prepare(rc *resolver.Context, batch *domain.CaseBatch) ([]prepared, error) {
	coercer := coerce.New(rc)
	out := make([]prepared, 0, len(batch.Records))
	for _, rec := range batch.Records {
		c := prepared{
			record: rec,
			kwargs: make(map[string]any, len(rec.Fields)),
			args:   make([]any, 0, len(batch.FieldOrder)),
		}
		for _, name := range batch.FieldOrder {
			raw, ok := rec.Fields[name]
			if !ok {
				continue
			}
			val := raw
			if desc, typed := batch.FieldTypes[name]; typed {
				v, err := coercer.Coerce(raw, desc)
				if err != nil {
					return nil, errs.AtRecord(rec.ID, name, err)
				}
				val = v
			}
			c.kwargs[name] = val
			c.args = append(c.args, val)
		}

		c.expected = rec.Expected
		if batch.ExpectedType != "" {
			v, err := coercer.Coerce(rec.Expected, batch.ExpectedType)
			if err != nil {
				return nil, errs.AtRecord(rec.ID, "expected", err)
			}
			c.expected = v
		}
		out = append(out, c)
	}
	return out, nil
}

func (e *Executor) runCase(ctx context.Context, p *project.Project, target *resolver.TargetSpec, c prepared, mocks mock.Spec) (domain.ExecutionResult, error) {
	res := domain.ExecutionResult{
		ID:       c.record.ID,
		Expected: c.expected,
	}

	start := time.Now()
	handle, err := e.installer.Install(p, mocks)
	if err != nil {
		e.logger.Error("Failed to install mocks", "case", c.record.ID, "error", err)
		return res, err
	}
	defer handle.Release()

	actual, err := e.invoke(ctx, target, c)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = errs.KindOf(err).String()
		e.logger.Debug("Case failed", "case", c.record.ID, "kind", res.ErrorKind, "error", err)
		return res, nil
	}

	res.Actual = actual
	res.Passed, res.Diff = Equal(c.expected, actual)
	return res, nil
}

type outcome struct {
	value any
	err   error
}

// invoke calls target under the per-case timeout, awaiting async results. A
// target that ignores its context keeps running in the background after a
// timeout; its late result is dropped.
func (e *Executor) invoke(ctx context.Context, target *resolver.TargetSpec, c prepared) (any, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := e.call(cctx, target, c)
		if err == nil && target.IsAsync {
			aw, ok := v.(project.Awaitable)
			if !ok {
				err = fmt.Errorf("%w: %s returned %T", errs.NotAwaitable, target.Name, v)
			} else {
				v, err = aw.Await(cctx)
			}
		}
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, errs.Timeout(e.timeout)
			}
			return nil, errs.Invocation(o.err)
		}
		return o.value, nil
	case <-cctx.Done():
		if ctx.Err() != nil {
			return nil, errs.Invocation(ctx.Err())
		}
		return nil, errs.Timeout(e.timeout)
	}
}

// call passes the fields the target declares as keyword arguments and, if the
// target rejects a keyword, retries once with positional arguments in column
// order.
func (e *Executor) call(ctx context.Context, target *resolver.TargetSpec, c prepared) (any, error) {
	kwargs := c.kwargs
	if len(target.Params) > 0 {
		kwargs = make(map[string]any, len(target.Params))
		for _, name := range target.Params {
			if v, ok := c.kwargs[name]; ok {
				kwargs[name] = v
			}
		}
	}

	v, err := target.Invoke(ctx, nil, kwargs)
	var uk *project.UnexpectedKeywordError
	if errors.As(err, &uk) {
		e.logger.Debug("Retrying with positional arguments", "target", target.Name, "keyword", uk.Keyword)
		return target.Invoke(ctx, c.args, nil)
	}
	return v, err
}
