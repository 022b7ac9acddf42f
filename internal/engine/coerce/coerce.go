// Package coerce turns loosely typed table cells into typed call arguments
// according to a type descriptor.
package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"gitlab.com/plantguard-2025.net/internal/engine/project"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// ClassLookup finds a constructible class by dotted path.
type ClassLookup interface {
	LookupClass(path string) (*project.Class, error)
}

type Coercer struct {
	classes ClassLookup
	parsed  map[string]*Descriptor
}

func New(classes ClassLookup) *Coercer {
	return &Coercer{
		classes: classes,
		parsed:  make(map[string]*Descriptor),
	}
}

// IsNone reports whether v counts as an absent value: nil, "" or "none" in
// any case.
func IsNone(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		return s == "" || strings.EqualFold(s, "none")
	}
	return false
}

// Coerce converts value to the shape named by descriptor. Failures are
// *errs.CoercionError values.
func (c *Coercer) Coerce(value any, descriptor string) (any, error) {
	if IsNone(value) {
		return nil, nil
	}
	d, err := c.descriptor(descriptor)
	if err != nil {
		return nil, &errs.CoercionError{Value: value, Descriptor: descriptor, Cause: err}
	}
	out, err := c.convert(value, d)
	if err != nil {
		return nil, &errs.CoercionError{Value: value, Descriptor: descriptor, Cause: err}
	}
	return out, nil
}

func (c *Coercer) descriptor(s string) (*Descriptor, error) {
	if d, ok := c.parsed[s]; ok {
		return d, nil
	}
	d, err := Parse(s)
	if err != nil {
		return nil, err
	}
	c.parsed[s] = d
	return d, nil
}

func (c *Coercer) convert(v any, d *Descriptor) (any, error) {
	if IsNone(v) {
		return nil, nil
	}
	switch d.Kind {
	case Int:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v has no integer value", f)
		}
		// float64(math.MaxInt) rounds up, so the upper bound is exclusive
		if f >= math.MaxInt || f < math.MinInt {
			return nil, fmt.Errorf("%v is out of range for int", f)
		}
		return int(f), nil
	case Float:
		return toFloat(v)
	case Str:
		return toString(v), nil
	case Bool:
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "1", "yes", "on":
				return true, nil
			}
			return false, nil
		}
		return truthy(v), nil
	case Class:
		return c.construct(v, d.Name)
	case List:
		items, err := toList(v)
		if err != nil {
			return nil, err
		}
		if d.Elem == nil {
			return items, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			conv, err := c.convert(item, d.Elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case Dict:
		m, err := toMap(v)
		if err != nil {
			return nil, err
		}
		if d.Elem == nil {
			return m, nil
		}
		if d.Elem.IsClass() {
			// the whole mapping becomes one object, not one object per entry
			return c.construct(m, d.Elem.Name)
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			conv, err := c.convert(item, d.Elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return v, nil
	}
}

// construct builds an instance of the class at path. Mappings become keyword
// arguments; keys the constructor does not declare are dropped on retry. A
// constructor panic is returned as an error.
func (c *Coercer) construct(v any, path string) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, fmt.Errorf("constructor of %s panicked: %v", path, r)
		}
	}()

	if c.classes == nil {
		return nil, fmt.Errorf("no class lookup available for %s", path)
	}
	cls, err := c.classes.LookupClass(path)
	if err != nil {
		return nil, err
	}

	if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
		m, err := toMap(s)
		if err != nil {
			return nil, err
		}
		v = m
	}

	kwargs, isMap := v.(map[string]any)
	if !isMap {
		return cls.ConstructWith([]any{v})
	}

	obj, err = cls.Construct(kwargs)
	var uk *project.UnexpectedKeywordError
	if !errors.As(err, &uk) {
		return obj, err
	}
	filtered := make(map[string]any, len(cls.Params))
	for _, p := range cls.Params {
		if val, ok := kwargs[p]; ok {
			filtered[p] = val
		}
	}
	return cls.Construct(filtered)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("%T is not numeric", v)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func toList(v any) ([]any, error) {
	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(s)
		if !strings.HasPrefix(trimmed, "[") {
			return []any{v}, nil
		}
		var out []any
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("malformed list literal: %w", err)
		}
		return out, nil
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return []any{v}, nil
}

func toMap(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case string:
		trimmed := strings.TrimSpace(x)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, fmt.Errorf("expected a mapping literal, got %q", x)
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("malformed mapping literal: %w", err)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a mapping, got %T", v)
}
