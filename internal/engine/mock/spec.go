// Package mock installs case-scoped substitutions on a project.
package mock

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Entry replaces one fully qualified member for the duration of a case.
type Entry struct {
	Target string
	Value  any
	// Async is the explicit nature of the stub; nil means "not declared".
	Async *bool
	// Err makes the stub fail instead of returning Value.
	Err error
}

// Spec is the set of entries installed together, ordered by target.
type Spec []Entry

// Wrapper keys recognized in a structured mock value.
const (
	KeyValue = "mock_value"
	KeyAsync = "is_async"
	KeyError = "mock_error"
)

// ParseSpec reads a mock_config mapping. A value is either the replacement
// itself or a wrapper object carrying mock_value and optional is_async and
// mock_error keys.
func ParseSpec(config map[string]interface{}) (Spec, error) {
	spec := make(Spec, 0, len(config))
	for target, raw := range config {
		target = strings.TrimSpace(target)
		if target == "" {
			return nil, errors.New("mock target name is empty")
		}
		e := Entry{Target: target, Value: raw}
		if w, ok := raw.(map[string]interface{}); ok && isWrapper(w) {
			e.Value = w[KeyValue]
			if a, ok := w[KeyAsync]; ok {
				b, ok := a.(bool)
				if !ok {
					return nil, fmt.Errorf("mock %s: %s must be a boolean, got %T", target, KeyAsync, a)
				}
				e.Async = &b
			}
			if m, ok := w[KeyError]; ok && m != nil {
				e.Err = errors.New(fmt.Sprint(m))
			}
		}
		spec = append(spec, e)
	}
	sort.Slice(spec, func(i, j int) bool { return spec[i].Target < spec[j].Target })
	return spec, nil
}

func isWrapper(m map[string]interface{}) bool {
	if _, ok := m[KeyValue]; ok {
		return true
	}
	_, ok := m[KeyError]
	return ok
}

// Targets lists the mocked names in installation order.
func (s Spec) Targets() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Target
	}
	return out
}

var asyncHints = []string{"fetch", "save", "create", "update", "delete", "async", "await", "coroutine"}

// IsAsyncName guesses whether a target is asynchronous from its name alone.
func IsAsyncName(target string) bool {
	lower := strings.ToLower(target)
	for _, hint := range asyncHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
