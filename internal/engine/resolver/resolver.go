// Package resolver turns a dotted path plus member name into a uniform,
// invocable TargetSpec.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

type Kind int

const (
	ModuleFunction Kind = iota
	StaticMethod
	ClassMethod
	InstanceMethod
)

func (k Kind) String() string {
	switch k {
	case StaticMethod:
		return "static_method"
	case ClassMethod:
		return "class_method"
	case InstanceMethod:
		return "instance_method"
	default:
		return "module_function"
	}
}

func kindOf(k project.MethodKind) Kind {
	switch k {
	case project.StaticMethod:
		return StaticMethod
	case project.ClassMethod:
		return ClassMethod
	default:
		return InstanceMethod
	}
}

// TargetSpec is the resolved callable under test.
type TargetSpec struct {
	Name    string
	Kind    Kind
	IsAsync bool
	Params  []string

	invoke func(ctx context.Context, args []any, kwargs map[string]any) (any, error)
}

// Invoke calls the target. For async targets the result is a
// project.Awaitable that the caller must await.
func (t *TargetSpec) Invoke(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return t.invoke(ctx, args, kwargs)
}

// Resolve finds member under dottedPath. A path with three or more segments
// names a class (last segment) inside a module (the rest); anything shorter
// names a module whose function is member.
func (c *Context) Resolve(dottedPath, member string) (*TargetSpec, error) {
	dottedPath = strings.TrimSpace(dottedPath)
	member = strings.TrimSpace(member)
	if dottedPath == "" || member == "" {
		return nil, errs.Resolution(errs.MemberNotFound, "class_name and method_name are required")
	}

	parts := strings.Split(dottedPath, ".")
	if len(parts) >= 3 {
		return c.resolveMethod(strings.Join(parts[:len(parts)-1], "."), parts[len(parts)-1], member)
	}
	return c.resolveFunc(dottedPath, member)
}

func (c *Context) resolveFunc(modPath, member string) (*TargetSpec, error) {
	m, err := c.Import(modPath)
	if err != nil {
		return nil, errs.Resolution(err, "cannot import module %q", modPath)
	}
	f, ok := m.Func(member)
	if !ok {
		if m.Has(member) {
			return nil, errs.Resolution(errs.NotCallable, "%s.%s is not a function", modPath, member)
		}
		return nil, errs.Resolution(errs.MemberNotFound, "module %q has no attribute %q", modPath, member)
	}

	name := modPath + "." + member
	p := c.project
	return &TargetSpec{
		Name:    name,
		Kind:    ModuleFunction,
		IsAsync: f.IsAsync(),
		Params:  f.Params,
		invoke: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return f.Invoke(ctx, p, name, nil, args, kwargs)
		},
	}, nil
}

func (c *Context) resolveMethod(modPath, className, member string) (*TargetSpec, error) {
	m, err := c.Import(modPath)
	if err != nil {
		return nil, errs.Resolution(err, "cannot import module %q", modPath)
	}
	if !m.Has(className) {
		return nil, errs.Resolution(errs.MemberNotFound, "module %q has no attribute %q", modPath, className)
	}
	cls, ok := m.Class(className)
	if !ok {
		return nil, errs.Resolution(errs.NotAClass, "%s.%s is not a class", modPath, className)
	}
	meth, ok := cls.Method(member)
	if !ok {
		return nil, errs.Resolution(errs.MemberNotFound, "class %q has no attribute %q", className, member)
	}

	name := cls.QualifiedName() + "." + member
	p := c.project
	return &TargetSpec{
		Name:    name,
		Kind:    kindOf(meth.Kind),
		IsAsync: meth.IsAsync(),
		Params:  meth.Params,
		invoke: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			recv, err := project.Receiver(cls, meth.Kind)
			if err != nil {
				return nil, err
			}
			return meth.Invoke(ctx, p, name, recv, args, kwargs)
		},
	}, nil
}

// LookupClass finds a class by "module.path.ClassName".
func (c *Context) LookupClass(path string) (*project.Class, error) {
	i := strings.LastIndex(path, ".")
	if i <= 0 || i == len(path)-1 {
		return nil, fmt.Errorf("%w: %q is not a module-qualified class path", errs.MemberNotFound, path)
	}
	modPath, name := path[:i], path[i+1:]
	m, err := c.Import(modPath)
	if err != nil {
		return nil, err
	}
	cls, ok := m.Class(name)
	if !ok {
		if m.Has(name) {
			return nil, fmt.Errorf("%w: %s", errs.NotAClass, path)
		}
		return nil, fmt.Errorf("%w: module %q has no attribute %q", errs.MemberNotFound, modPath, name)
	}
	return cls, nil
}
