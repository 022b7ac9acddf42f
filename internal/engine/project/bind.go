package project

import (
	"fmt"
	"sort"

	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// UnexpectedKeywordError is returned when a keyword argument does not match
// any declared parameter.
type UnexpectedKeywordError struct {
	Callable string
	Keyword  string
}

func (e *UnexpectedKeywordError) Error() string {
	return fmt.Sprintf("%s() got an unexpected keyword argument '%s'", e.Callable, e.Keyword)
}

func (e *UnexpectedKeywordError) Unwrap() error {
	return errs.UnexpectedKeyword
}

// Bind maps positional and keyword arguments onto the declared parameter
// list. Parameters that receive nothing stay nil. A nil params list declares a
// positional-only variadic callable: args pass through and any keyword is
// unexpected.
func Bind(callable string, params []string, args []any, kwargs map[string]any) ([]any, error) {
	if params == nil {
		if len(kwargs) > 0 {
			keys := make([]string, 0, len(kwargs))
			for k := range kwargs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return nil, &UnexpectedKeywordError{Callable: callable, Keyword: keys[0]}
		}
		return args, nil
	}
	if len(args) > len(params) {
		return nil, fmt.Errorf("%s() takes %d positional arguments but %d were given", callable, len(params), len(args))
	}
	out := make([]any, len(params))
	copy(out, args)

	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		idx := indexOf(params, k)
		if idx < 0 {
			return nil, &UnexpectedKeywordError{Callable: callable, Keyword: k}
		}
		if idx < len(args) {
			return nil, fmt.Errorf("%s() got multiple values for argument '%s'", callable, k)
		}
		out[idx] = kwargs[k]
	}
	return out, nil
}

func indexOf(params []string, name string) int {
	for i, p := range params {
		if p == name {
			return i
		}
	}
	return -1
}
