package project

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Body is a synchronous callable.
type Body func(ctx context.Context, in *Invocation) (any, error)

// AsyncBody is an asynchronous callable; it returns immediately and the
// caller awaits the result.
type AsyncBody func(ctx context.Context, in *Invocation) Awaitable

// Func is a registered function. Exactly one of Sync and Async is set.
type Func struct {
	Name   string
	Params []string
	Sync   Body
	Async  AsyncBody
}

func (f *Func) IsAsync() bool {
	return f.Async != nil
}

// Invoke binds args and kwargs to the declared params and runs the body.
// For async functions the returned value is an Awaitable.
func (f *Func) Invoke(ctx context.Context, p *Project, qualified string, recv any, args []any, kwargs map[string]any) (any, error) {
	bound, err := Bind(f.Name, f.Params, args, kwargs)
	if err != nil {
		return nil, err
	}
	in := &Invocation{Receiver: recv, Args: bound, project: p}
	if f.Async != nil {
		return f.Async(ctx, in), nil
	}
	if f.Sync == nil {
		return nil, fmt.Errorf("%w: %s has no body", errs.NotCallable, qualified)
	}
	return f.Sync(ctx, in)
}

type MethodKind int

const (
	InstanceMethod MethodKind = iota
	StaticMethod
	ClassMethod
)

func (k MethodKind) String() string {
	switch k {
	case StaticMethod:
		return "static_method"
	case ClassMethod:
		return "class_method"
	default:
		return "instance_method"
	}
}

type Method struct {
	Func
	Kind MethodKind
}

// Class is a constructible type. New receives the constructor arguments bound
// in Params order.
type Class struct {
	Name    string
	Params  []string
	New     func(args []any) (any, error)
	Methods []*Method

	module  string
	methods map[string]*Method
}

// QualifiedName returns module path and class name joined by a dot.
func (c *Class) QualifiedName() string {
	if c.module == "" {
		return c.Name
	}
	return c.module + "." + c.Name
}

func (c *Class) Method(name string) (*Method, bool) {
	m, ok := c.methods[name]
	return m, ok
}

func (c *Class) MethodNames() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct calls the constructor with keyword arguments. Keys that are not
// constructor params yield an *UnexpectedKeywordError.
func (c *Class) Construct(kwargs map[string]any) (any, error) {
	bound, err := Bind(c.Name, c.Params, nil, kwargs)
	if err != nil {
		return nil, err
	}
	return c.New(bound)
}

// ConstructWith calls the constructor with positional arguments.
func (c *Class) ConstructWith(args []any) (any, error) {
	bound, err := Bind(c.Name, c.Params, args, nil)
	if err != nil {
		return nil, err
	}
	return c.New(bound)
}

// Instantiate builds a default instance with every constructor param unset.
func (c *Class) Instantiate() (any, error) {
	return c.New(make([]any, len(c.Params)))
}

// Module holds the members registered under one dotted path.
type Module struct {
	Path string

	mu      sync.RWMutex
	funcs   map[string]*Func
	classes map[string]*Class
	vars    map[string]any
}

func newModule(path string) *Module {
	return &Module{
		Path:    path,
		funcs:   make(map[string]*Func),
		classes: make(map[string]*Class),
		vars:    make(map[string]any),
	}
}

func (m *Module) AddFunc(f *Func) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs[f.Name] = f
	return m
}

func (m *Module) AddClass(c *Class) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.module = m.Path
	c.methods = make(map[string]*Method, len(c.Methods))
	for _, meth := range c.Methods {
		c.methods[meth.Name] = meth
	}
	m.classes[c.Name] = c
	return m
}

func (m *Module) AddVar(name string, v any) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = v
	return m
}

func (m *Module) Func(name string) (*Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.funcs[name]
	return f, ok
}

func (m *Module) Class(name string) (*Class, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[name]
	return c, ok
}

func (m *Module) Var(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

// Has reports whether name is any kind of member of the module.
func (m *Module) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.funcs[name]; ok {
		return true
	}
	if _, ok := m.classes[name]; ok {
		return true
	}
	_, ok := m.vars[name]
	return ok
}

func (m *Module) FuncNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.funcs)
}

func (m *Module) ClassNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.classes)
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
