// Package project is the callable registry the test engine resolves targets
// against. A Project stands in for a source tree: modules are registered under
// dotted paths relative to the project root and hold functions, classes and
// attributes. Collaborator calls made through a Project honor installed
// patches, which is how mocks reach code under test.
package project

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Project is a named tree of modules.
type Project struct {
	Name string

	mu      sync.RWMutex
	modules map[string]*Module

	patchMu sync.RWMutex
	patches map[string]Patch
}

func New(name string) *Project {
	return &Project{
		Name:    name,
		modules: make(map[string]*Module),
		patches: make(map[string]Patch),
	}
}

// Module returns the module registered at path, creating it if needed.
func (p *Project) Module(path string) *Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.modules[path]; ok {
		return m
	}
	m := newModule(path)
	p.modules[path] = m
	return m
}

// Import returns an existing module.
func (p *Project) Import(path string) (*Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.modules[path]
	if !ok {
		return nil, fmt.Errorf("%w: no module named '%s' in %s", errs.ModuleNotFound, path, p.Name)
	}
	return m, nil
}

// ModulePaths returns all registered module paths in sorted order.
func (p *Project) ModulePaths() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	paths := make([]string, 0, len(p.modules))
	for path := range p.modules {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Target is a fully qualified member looked up by dotted name.
type Target struct {
	Name   string
	Func   *Func
	Method *Method
	Class  *Class
	Value  any
	IsVar  bool
}

// IsAsync reports the declared nature of a callable target.
func (t *Target) IsAsync() bool {
	switch {
	case t.Method != nil:
		return t.Method.IsAsync()
	case t.Func != nil:
		return t.Func.IsAsync()
	default:
		return false
	}
}

// Lookup resolves a fully qualified name such as "services.weather.WeatherClient.fetch"
// or "utils.add". Module-level members are tried first, then class members.
func (p *Project) Lookup(name string) (*Target, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: '%s' is not a qualified name", errs.MemberNotFound, name)
	}

	modPath := strings.Join(parts[:len(parts)-1], ".")
	member := parts[len(parts)-1]
	if m, err := p.Import(modPath); err == nil {
		if f, ok := m.Func(member); ok {
			return &Target{Name: name, Func: f}, nil
		}
		if c, ok := m.Class(member); ok {
			return &Target{Name: name, Class: c}, nil
		}
		if v, ok := m.Var(member); ok {
			return &Target{Name: name, Value: v, IsVar: true}, nil
		}
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: module '%s' has no attribute '%s'", errs.MemberNotFound, modPath, member)
		}
	}

	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: no module named '%s'", errs.ModuleNotFound, modPath)
	}
	modPath = strings.Join(parts[:len(parts)-2], ".")
	className := parts[len(parts)-2]
	m, err := p.Import(modPath)
	if err != nil {
		return nil, err
	}
	c, ok := m.Class(className)
	if !ok {
		return nil, fmt.Errorf("%w: module '%s' has no class '%s'", errs.MemberNotFound, modPath, className)
	}
	meth, ok := c.Method(member)
	if !ok {
		return nil, fmt.Errorf("%w: class '%s' has no attribute '%s'", errs.MemberNotFound, className, member)
	}
	return &Target{Name: name, Method: meth, Class: c}, nil
}

// Patch is a scoped substitution for a named member.
type Patch struct {
	Value any
	Async bool
	Err   error
}

func (pt Patch) result() (any, error) {
	if pt.Async {
		if pt.Err != nil {
			return Failed(pt.Err), nil
		}
		return Resolved(pt.Value), nil
	}
	if pt.Err != nil {
		return nil, pt.Err
	}
	return pt.Value, nil
}

// Patch installs pt under name and returns a function that restores whatever
// was there before. Patches on the same name nest.
func (p *Project) Patch(name string, pt Patch) (restore func()) {
	p.patchMu.Lock()
	prev, had := p.patches[name]
	p.patches[name] = pt
	p.patchMu.Unlock()

	return func() {
		p.patchMu.Lock()
		defer p.patchMu.Unlock()
		if had {
			p.patches[name] = prev
			return
		}
		delete(p.patches, name)
	}
}

// Patched reports whether name currently has a patch installed.
func (p *Project) Patched(name string) bool {
	p.patchMu.RLock()
	defer p.patchMu.RUnlock()
	_, ok := p.patches[name]
	return ok
}

func (p *Project) patch(name string) (Patch, bool) {
	p.patchMu.RLock()
	defer p.patchMu.RUnlock()
	pt, ok := p.patches[name]
	return pt, ok
}

// Call invokes a collaborator by qualified name. Async callables return their
// Awaitable unresolved; use Invocation.Await to wait for them.
func (p *Project) Call(ctx context.Context, name string, args ...any) (any, error) {
	if pt, ok := p.patch(name); ok {
		return pt.result()
	}
	t, err := p.Lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case t.IsVar:
		return nil, fmt.Errorf("%w: '%s' is an attribute", errs.NotCallable, name)
	case t.Func != nil:
		return t.Func.Invoke(ctx, p, name, nil, args, nil)
	case t.Method != nil:
		recv, err := Receiver(t.Class, t.Method.Kind)
		if err != nil {
			return nil, err
		}
		return t.Method.Invoke(ctx, p, name, recv, args, nil)
	default:
		return t.Class.ConstructWith(args)
	}
}

// Value reads an attribute, honoring patches.
func (p *Project) Value(name string) (any, error) {
	if pt, ok := p.patch(name); ok {
		return pt.Value, pt.Err
	}
	t, err := p.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !t.IsVar {
		return nil, fmt.Errorf("%w: '%s' is not an attribute", errs.MemberNotFound, name)
	}
	return t.Value, nil
}

// Receiver builds the receiver a method of the given kind is called with:
// nil for static methods, the class for class methods and a fresh
// default-constructed instance for instance methods.
func Receiver(c *Class, kind MethodKind) (any, error) {
	switch kind {
	case StaticMethod:
		return nil, nil
	case ClassMethod:
		return c, nil
	default:
		inst, err := c.Instantiate()
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate %s: %w", c.Name, err)
		}
		return inst, nil
	}
}

// Invocation is what a registered body receives.
type Invocation struct {
	Receiver any
	Args     []any
	project  *Project
}

// Arg returns the i-th bound argument or nil.
func (in *Invocation) Arg(i int) any {
	if i < 0 || i >= len(in.Args) {
		return nil
	}
	return in.Args[i]
}

func (in *Invocation) Project() *Project {
	return in.project
}

// Call invokes a synchronous collaborator.
func (in *Invocation) Call(ctx context.Context, name string, args ...any) (any, error) {
	return in.project.Call(ctx, name, args...)
}

// Await invokes an async collaborator and waits for its result. A collaborator
// that does not produce an Awaitable is an error, as awaiting a plain value is.
func (in *Invocation) Await(ctx context.Context, name string, args ...any) (any, error) {
	v, err := in.project.Call(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	aw, ok := v.(Awaitable)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", errs.NotAwaitable, name, v)
	}
	return aw.Await(ctx)
}

// Value reads a project attribute.
func (in *Invocation) Value(name string) (any, error) {
	return in.project.Value(name)
}
