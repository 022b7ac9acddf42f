package resolver

import (
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Context is the per-run resolution state: the project the run's root points
// at and the modules already imported during the run. Create one at run start
// and Close it when the run ends; it is not safe for concurrent use.
type Context struct {
	Root    string
	project *project.Project
	modules map[string]*project.Module
	imports int
}

// NewContext opens a resolution context for the project registered at root.
func NewContext(catalog *project.Catalog, root string) (*Context, error) {
	p, err := catalog.Get(root)
	if err != nil {
		return nil, errs.Resolution(err, "cannot open project root %q", root)
	}
	return &Context{
		Root:    root,
		project: p,
		modules: make(map[string]*project.Module),
	}, nil
}

// ForProject opens a context directly on p.
func ForProject(p *project.Project) *Context {
	return &Context{
		Root:    p.Name,
		project: p,
		modules: make(map[string]*project.Module),
	}
}

func (c *Context) Project() *project.Project {
	return c.project
}

// Import returns the module at path, consulting the project only on the first
// request for each path.
func (c *Context) Import(path string) (*project.Module, error) {
	if m, ok := c.modules[path]; ok {
		return m, nil
	}
	m, err := c.project.Import(path)
	if err != nil {
		return nil, err
	}
	c.imports++
	c.modules[path] = m
	return m, nil
}

// Imports reports how many distinct modules were loaded from the project.
func (c *Context) Imports() int {
	return c.imports
}

// Close drops the module cache.
func (c *Context) Close() {
	c.modules = nil
}
