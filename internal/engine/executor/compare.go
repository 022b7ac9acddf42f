package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Tolerance is the absolute difference under which two numbers are equal.
const Tolerance = 1e-9

var cmpOptions = []cmp.Option{
	cmpopts.EquateApprox(0, Tolerance),
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal compares an expected value against an actual one. When they differ
// the second return value describes how.
func Equal(expected, actual any) (bool, string) {
	switch {
	case expected == nil && actual == nil:
		return true, ""
	case expected == nil || actual == nil:
		return false, fmt.Sprintf("expected %s, got %s", show(expected), show(actual))
	}

	if es, ok := expected.(string); ok {
		if as, ok := actual.(string); ok {
			if strings.TrimSpace(es) == strings.TrimSpace(as) {
				return true, ""
			}
			return false, fmt.Sprintf("expected %q, got %q", es, as)
		}
	}

	if ef, ok := number(expected); ok {
		if af, ok := number(actual); ok {
			if math.Abs(ef-af) <= Tolerance {
				return true, ""
			}
			return false, fmt.Sprintf("expected %v, got %v", expected, actual)
		}
	}

	if structural(expected, actual) {
		return true, ""
	}
	if reflect.TypeOf(expected) != reflect.TypeOf(actual) {
		en, eok := normalize(expected)
		an, aok := normalize(actual)
		if eok && aok && structural(en, an) {
			return true, ""
		}
	}
	return false, diff(expected, actual)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// structural falls back to reflect.DeepEqual for values go-cmp refuses to
// handle.
func structural(a, b any) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return cmp.Equal(a, b, cmpOptions...)
}

// normalize round-trips v through JSON so that a struct and the equivalent
// mapping compare equal.
func normalize(v any) (any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}

func diff(expected, actual any) (d string) {
	defer func() {
		if r := recover(); r != nil {
			d = fmt.Sprintf("expected %s, got %s", show(expected), show(actual))
		}
	}()
	if reflect.TypeOf(expected) != reflect.TypeOf(actual) {
		return fmt.Sprintf("expected %s (%T), got %s (%T)", show(expected), expected, show(actual), actual)
	}
	return cmp.Diff(expected, actual, cmpOptions...)
}

func show(v any) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
