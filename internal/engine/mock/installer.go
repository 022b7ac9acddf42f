package mock

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Mode selects how an entry without an explicit is_async flag is classified.
type Mode int

const (
	// Explicit uses the entry's is_async flag, falling back to the patched
	// member's declared nature.
	Explicit Mode = iota
	// Heuristic classifies every entry by IsAsyncName.
	Heuristic
)

func (m Mode) String() string {
	if m == Heuristic {
		return "heuristic"
	}
	return "explicit"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "explicit":
		return Explicit, nil
	case "heuristic":
		return Heuristic, nil
	}
	return Explicit, fmt.Errorf("unknown mock mode %q", s)
}

type Installer struct {
	mode   Mode
	logger primary.Logger
}

func NewInstaller(mode Mode, logger primary.Logger) *Installer {
	return &Installer{mode: mode, logger: logger}
}

func (i *Installer) Mode() Mode {
	return i.mode
}

// Validate checks that every target exists in p without installing anything.
func (i *Installer) Validate(p *project.Project, spec Spec) error {
	for _, e := range spec {
		if _, err := p.Lookup(e.Target); err != nil {
			return errs.MockInstall(err, "cannot mock %s", e.Target)
		}
	}
	return nil
}

// Install applies every entry of spec to p. Either all entries are installed
// or none are.
func (i *Installer) Install(p *project.Project, spec Spec) (*Handle, error) {
	h := &Handle{}
	for _, e := range spec {
		t, err := p.Lookup(e.Target)
		if err != nil {
			h.Release()
			return nil, errs.MockInstall(err, "cannot mock %s", e.Target)
		}
		async := i.isAsync(e, t)
		h.restores = append(h.restores, p.Patch(e.Target, project.Patch{
			Value: e.Value,
			Async: async,
			Err:   e.Err,
		}))
		if i.logger != nil {
			i.logger.Debug("Mock installed", "target", e.Target, "async", async)
		}
	}
	return h, nil
}

func (i *Installer) isAsync(e Entry, t *project.Target) bool {
	if i.mode == Heuristic {
		return IsAsyncName(e.Target)
	}
	if e.Async != nil {
		return *e.Async
	}
	if t.IsVar {
		return false
	}
	return t.IsAsync()
}

// Handle reverts the substitutions made by one Install.
type Handle struct {
	once     sync.Once
	restores []func()
}

// Release reverts all substitutions in reverse installation order. It is safe
// to call more than once and on a nil handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		for j := len(h.restores) - 1; j >= 0; j-- {
			h.restores[j]()
		}
	})
}
