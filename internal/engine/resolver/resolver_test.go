package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

type counter struct {
	hits int
}

func fixture() *project.Project {
	p := project.New("demo")
	p.Module("utils").
		AddFunc(&project.Func{
			Name:   "add",
			Params: []string{"a", "b"},
			Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
				return project.Int(in.Arg(0)) + project.Int(in.Arg(1)), nil
			},
		}).
		AddVar("VERSION", "1.0")

	p.Module("models").AddClass(&project.Class{
		Name:   "User",
		Params: []string{"userId"},
		New: func(args []any) (any, error) {
			return map[string]any{"userId": args[0]}, nil
		},
	})

	p.Module("services.counter").AddClass(&project.Class{
		Name: "Counter",
		New: func([]any) (any, error) {
			return &counter{}, nil
		},
		Methods: []*project.Method{
			{
				Func: project.Func{
					Name: "bump",
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						c := in.Receiver.(*counter)
						c.hits++
						return c.hits, nil
					},
				},
			},
			{
				Kind: project.StaticMethod,
				Func: project.Func{
					Name:   "double",
					Params: []string{"n"},
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						if in.Receiver != nil {
							return nil, errors.New("static method got a receiver")
						}
						return project.Int(in.Arg(0)) * 2, nil
					},
				},
			},
			{
				Kind: project.ClassMethod,
				Func: project.Func{
					Name: "describe",
					Sync: func(ctx context.Context, in *project.Invocation) (any, error) {
						return in.Receiver.(*project.Class).QualifiedName(), nil
					},
				},
			},
			{
				Func: project.Func{
					Name: "later",
					Async: func(ctx context.Context, in *project.Invocation) project.Awaitable {
						return project.Resolved("done")
					},
				},
			},
		},
	})
	p.Module("services.counter").AddVar("LIMIT", 3)
	return p
}

func TestResolve_ModuleFunction(t *testing.T) {
	c := ForProject(fixture())
	spec, err := c.Resolve("utils", "add")
	require.NoError(t, err)

	assert.Equal(t, "utils.add", spec.Name)
	assert.Equal(t, ModuleFunction, spec.Kind)
	assert.False(t, spec.IsAsync)
	assert.Equal(t, []string{"a", "b"}, spec.Params)

	got, err := spec.Invoke(context.Background(), nil, map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestResolve_MethodKinds(t *testing.T) {
	c := ForProject(fixture())
	ctx := context.Background()

	bump, err := c.Resolve("services.counter.Counter", "bump")
	require.NoError(t, err)
	assert.Equal(t, InstanceMethod, bump.Kind)
	assert.Equal(t, "services.counter.Counter.bump", bump.Name)

	// every invocation gets a fresh instance
	for i := 0; i < 3; i++ {
		got, err := bump.Invoke(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	}

	double, err := c.Resolve("services.counter.Counter", "double")
	require.NoError(t, err)
	assert.Equal(t, StaticMethod, double.Kind)
	got, err := double.Invoke(ctx, []any{21}, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	describe, err := c.Resolve("services.counter.Counter", "describe")
	require.NoError(t, err)
	assert.Equal(t, ClassMethod, describe.Kind)
	got, err = describe.Invoke(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "services.counter.Counter", got)

	later, err := c.Resolve("services.counter.Counter", "later")
	require.NoError(t, err)
	assert.True(t, later.IsAsync)
	v, err := later.Invoke(ctx, nil, nil)
	require.NoError(t, err)
	aw, ok := v.(project.Awaitable)
	require.True(t, ok)
	res, err := aw.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", res)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		member string
		cause  error
	}{
		{"missing module", "nope", "add", errs.ModuleNotFound},
		{"missing function", "utils", "sub", errs.MemberNotFound},
		{"attribute is not callable", "utils", "VERSION", errs.NotCallable},
		{"missing class module", "services.nope.Thing", "run", errs.ModuleNotFound},
		{"missing class", "services.counter.Nope", "bump", errs.MemberNotFound},
		{"member is not a class", "services.counter.LIMIT", "bump", errs.NotAClass},
		{"missing method", "services.counter.Counter", "reset", errs.MemberNotFound},
		{"empty member", "utils", "", errs.MemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ForProject(fixture())
			_, err := c.Resolve(tt.path, tt.member)
			require.Error(t, err)
			assert.Equal(t, errs.KindResolution, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestContext_ImportsAreCached(t *testing.T) {
	c := ForProject(fixture())
	for i := 0; i < 5; i++ {
		_, err := c.Resolve("utils", "add")
		require.NoError(t, err)
		_, err = c.LookupClass("models.User")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Imports())

	c.Close()
	assert.Nil(t, c.modules)
}

func TestContext_LookupClass(t *testing.T) {
	c := ForProject(fixture())

	cls, err := c.LookupClass("models.User")
	require.NoError(t, err)
	assert.Equal(t, "models.User", cls.QualifiedName())

	_, err = c.LookupClass("User")
	assert.ErrorIs(t, err, errs.MemberNotFound)
	_, err = c.LookupClass("models.Plot")
	assert.ErrorIs(t, err, errs.MemberNotFound)
	_, err = c.LookupClass("utils.add")
	assert.ErrorIs(t, err, errs.NotAClass)
	_, err = c.LookupClass("geo.Point")
	assert.ErrorIs(t, err, errs.ModuleNotFound)
}

func TestNewContext(t *testing.T) {
	catalog := project.NewCatalog()
	require.NoError(t, catalog.Register(fixture()))

	c, err := NewContext(catalog, "/srv/projects/demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Project().Name)

	_, err = NewContext(catalog, "elsewhere")
	require.Error(t, err)
	assert.Equal(t, errs.KindResolution, errs.KindOf(err))
	assert.ErrorIs(t, err, errs.UnknownRoot)
}
