package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Catalog maps project roots to registered projects.
type Catalog struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

func NewCatalog() *Catalog {
	return &Catalog{projects: make(map[string]*Project)}
}

// Register adds p under its name. Registering the same name twice is an error.
func (c *Catalog) Register(p *Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.projects[p.Name]; exists {
		return fmt.Errorf("project already registered: %s", p.Name)
	}
	c.projects[p.Name] = p
	return nil
}

// MustRegister registers p and panics on error. Use at init time.
func (c *Catalog) MustRegister(p *Project) {
	if err := c.Register(p); err != nil {
		panic(err)
	}
}

// Get finds a project by root. A filesystem-style root such as
// "/srv/app/plantcare" matches the project named by its last element.
func (c *Catalog) Get(root string) (*Project, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := strings.TrimSpace(root)
	if p, ok := c.projects[key]; ok {
		return p, nil
	}
	base := filepath.Base(filepath.Clean(filepath.FromSlash(key)))
	if p, ok := c.projects[base]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", errs.UnknownRoot, root)
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.projects))
	for name := range c.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
