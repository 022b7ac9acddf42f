package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/engine/loader"
	"gitlab.com/plantguard-2025.net/internal/engine/mock"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/engine/resolver"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

type user struct {
	UserID string `json:"userId"`
}

func sampleProject() *project.Project {
	p := project.New("sample")
	p.Module("utils").
		AddFunc(&project.Func{
			Name:   "add",
			Params: []string{"a", "b"},
			Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
				return project.Int(in.Arg(0)) + project.Int(in.Arg(1)), nil
			},
		}).
		AddFunc(&project.Func{
			Name: "concat",
			Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
				out := ""
				for _, a := range in.Args {
					out += project.String(a)
				}
				return out, nil
			},
		}).
		AddFunc(&project.Func{
			Name:   "explode",
			Params: []string{"a"},
			Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
				panic("kaboom")
			},
		}).
		AddFunc(&project.Func{
			Name:   "greet",
			Params: []string{"u"},
			Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
				u, ok := in.Arg(0).(*user)
				if !ok {
					return nil, errors.New("not a user")
				}
				return "hi " + u.UserID, nil
			},
		}).
		AddFunc(&project.Func{
			Name:   "slow",
			Params: []string{"a"},
			Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
				return project.Go(ctx, func(ctx context.Context) (any, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})
			},
		}).
		AddFunc(&project.Func{
			Name:   "lookup",
			Params: []string{"key"},
			Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
				return project.Go(ctx, func(ctx context.Context) (any, error) {
					return in.Await(ctx, "store.Store.fetch", in.Arg(0))
				})
			},
		})

	p.Module("models").AddClass(&project.Class{
		Name:   "User",
		Params: []string{"userId"},
		New: func(args []any) (any, error) {
			return &user{UserID: project.String(args[0])}, nil
		},
	})

	p.Module("store").AddClass(&project.Class{
		Name: "Store",
		New:  func([]any) (any, error) { return struct{}{}, nil },
		Methods: []*project.Method{
			{Func: project.Func{
				Name:   "fetch",
				Params: []string{"key"},
				Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
					return project.Failed(errors.New("no backing store"))
				},
			}},
		},
	})
	return p
}

func setup(t *testing.T, module, member string, table domain.Table) (*resolver.Context, *resolver.TargetSpec, *domain.CaseBatch) {
	t.Helper()
	rc := resolver.ForProject(sampleProject())
	target, err := rc.Resolve(module, member)
	require.NoError(t, err)
	batch, err := loader.Load(table)
	require.NoError(t, err)
	return rc, target, batch
}

func TestRun_ExpectedLeftRawWhenUntyped(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "", "int", "int"},
		{"1", "5", "2", "3"},
	})

	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, "1", res.ID)
	assert.Equal(t, "5", res.Expected)
	assert.Equal(t, 5, res.Actual)
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Diff)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Passed)
	assert.Equal(t, "0.0%", summary.PassRate)
}

func TestRun_ExpectedCoercedWhenTyped(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "int", "int", "int"},
		{"1", "5", "2", "3"},
		{"2", "7.0", "3.0", "4"},
		{"", "0", "0", "0"},
		{"3", "1", "1", "1"},
	})

	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, summary.Total, summary.Passed+summary.Failed)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, "66.7%", summary.PassRate)
	assert.Equal(t, []string{"1", "2", "3"}, []string{summary.Results[0].ID, summary.Results[1].ID, summary.Results[2].ID})
}

func TestRun_StopOnFailure(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "int", "int", "int"},
		{"1", "2", "1", "1"},
		{"2", "99", "1", "1"},
		{"3", "2", "1", "1"},
		{"4", "2", "1", "1"},
	})

	var seen []int
	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{
		StopOnFailure: true,
		OnResult: func(index, total int, r domain.ExecutionResult) {
			assert.Equal(t, 4, total)
			seen = append(seen, index)
		},
	})
	require.NoError(t, err)
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int{0, 1}, seen)
}

func TestRun_CoercionFailsFast(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "", "int", "int"},
		{"1", "2", "1", "1"},
		{"2", "2", "one", "1"},
	})

	var calls int
	_, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{
		OnResult: func(int, int, domain.ExecutionResult) { calls++ },
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindCoercion, errs.KindOf(err))
	var ee *errs.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "2", ee.RecordID)
	assert.Equal(t, "a", ee.Field)
	assert.Zero(t, calls, "no case may run before coercion succeeds for the whole batch")
}

func TestRun_ConstructorPanicIsCoercionError(t *testing.T) {
	p := sampleProject()
	p.Module("models").AddClass(&project.Class{
		Name:   "Fragile",
		Params: []string{"x"},
		New: func([]any) (any, error) {
			panic("constructor blew up")
		},
	})
	rc := resolver.ForProject(p)
	target, err := rc.Resolve("utils", "greet")
	require.NoError(t, err)
	batch, err := loader.Load(domain.Table{
		{"ID", "期望结果", "u"},
		{"", "", "models.Fragile"},
		{"1", "", `{"x": 1}`},
	})
	require.NoError(t, err)

	var calls int
	require.NotPanics(t, func() {
		_, err = New().Run(context.Background(), rc, target, batch, nil, RunOptions{
			OnResult: func(int, int, domain.ExecutionResult) { calls++ },
		})
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindCoercion, errs.KindOf(err))
	assert.Contains(t, err.Error(), "constructor blew up")
	assert.Zero(t, calls)
}

func TestRun_PositionalRetry(t *testing.T) {
	rc, target, batch := setup(t, "utils", "concat", domain.Table{
		{"ID", "期望结果", "first", "second"},
		{"", "", "", ""},
		{"1", "ab", "a", "b"},
	})

	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Passed, summary.Results[0].Error)
}

func TestRun_ClassField(t *testing.T) {
	rc, target, batch := setup(t, "utils", "greet", domain.Table{
		{"ID", "期望结果", "u"},
		{"", "", "models.User"},
		{"1", "hi u1", `{"userId":"u1","username":"bob"}`},
	})

	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Passed, summary.Results[0].Error)
}

func TestRun_PanicIsInvocationError(t *testing.T) {
	rc, target, batch := setup(t, "utils", "explode", domain.Table{
		{"ID", "期望结果", "a"},
		{"", "", ""},
		{"1", "", "x"},
		{"2", "", "y"},
	})

	summary, err := New().Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		assert.False(t, r.Passed)
		assert.Nil(t, r.Actual)
		assert.Equal(t, "invocation_error", r.ErrorKind)
		assert.Contains(t, r.Error, "kaboom")
	}
}

func TestRun_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	rc, target, batch := setup(t, "utils", "slow", domain.Table{
		{"ID", "期望结果", "a"},
		{"", "", ""},
		{"1", "x", "x"},
	})

	summary, err := New(WithTimeout(20*time.Millisecond)).Run(context.Background(), rc, target, batch, nil, RunOptions{})
	require.NoError(t, err)
	res := summary.Results[0]
	assert.False(t, res.Passed)
	assert.Equal(t, "timeout", res.ErrorKind)
	assert.GreaterOrEqual(t, res.Duration, 20*time.Millisecond)
}

func TestRun_MocksAreCaseScoped(t *testing.T) {
	rc, target, batch := setup(t, "utils", "lookup", domain.Table{
		{"ID", "期望结果", "key"},
		{"", "int", "str"},
		{"1", "42", "answer"},
		{"2", "42", "again"},
	})
	mocks, err := mock.ParseSpec(map[string]interface{}{
		"store.Store.fetch": map[string]interface{}{"mock_value": 42},
	})
	require.NoError(t, err)

	var patchedDuringCase []bool
	summary, err := New().Run(context.Background(), rc, target, batch, mocks, RunOptions{
		OnResult: func(int, int, domain.ExecutionResult) {
			patchedDuringCase = append(patchedDuringCase, rc.Project().Patched("store.Store.fetch"))
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, []bool{false, false}, patchedDuringCase)
	assert.False(t, rc.Project().Patched("store.Store.fetch"))
}

func TestRun_UnknownMockTargetIsFatal(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "", "", ""},
		{"1", "2", "1", "1"},
	})
	mocks, err := mock.ParseSpec(map[string]interface{}{"store.Nope.fetch": 1})
	require.NoError(t, err)

	_, err = New().Run(context.Background(), rc, target, batch, mocks, RunOptions{})
	require.Error(t, err)
	assert.Equal(t, errs.KindMockInstall, errs.KindOf(err))
}

func TestRun_CancelledContext(t *testing.T) {
	rc, target, batch := setup(t, "utils", "add", domain.Table{
		{"ID", "期望结果", "a", "b"},
		{"", "", "", ""},
		{"1", "2", "1", "1"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New().Run(ctx, rc, target, batch, nil, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total)
}
