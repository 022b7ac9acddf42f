package coerce

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DescKind is the shape a Descriptor asks for.
type DescKind int

const (
	Untyped DescKind = iota
	Int
	Float
	Str
	Bool
	Class
	List
	Dict
)

// Descriptor is a parsed type descriptor such as "int", "models.User",
// "list(models.Plot)" or "dict(list(int))".
type Descriptor struct {
	Kind DescKind
	// Name holds the class path for Class and the original spelling of an
	// unrecognized bare name for Untyped.
	Name string
	// Elem is the inner descriptor of a container; nil for bare list/dict.
	Elem *Descriptor
}

func (d *Descriptor) String() string {
	switch d.Kind {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Bool:
		return "bool"
	case Class:
		return d.Name
	case List, Dict:
		name := "list"
		if d.Kind == Dict {
			name = "dict"
		}
		if d.Elem == nil {
			return name
		}
		return fmt.Sprintf("%s(%s)", name, d.Elem.String())
	default:
		return d.Name
	}
}

// IsClass reports whether the descriptor names a constructible type.
func (d *Descriptor) IsClass() bool {
	return d != nil && d.Kind == Class
}

// Parse reads a descriptor by recursive descent. An empty string is Untyped.
func Parse(s string) (*Descriptor, error) {
	p := &parser{src: strings.TrimSpace(s)}
	if p.src == "" {
		return &Descriptor{Kind: Untyped}, nil
	}
	d, err := p.descriptor()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d in type descriptor %q", p.src[p.pos:], p.pos, p.src)
	}
	return d, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r, width := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			p.pos += width
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) descriptor() (*Descriptor, error) {
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("expected a type name at offset %d in %q", p.pos, p.src)
	}
	p.skipSpace()
	hasArgs := p.pos < len(p.src) && p.src[p.pos] == '('

	lower := strings.ToLower(name)
	switch lower {
	case "list", "dict":
		d := &Descriptor{Kind: List}
		if lower == "dict" {
			d.Kind = Dict
		}
		if !hasArgs {
			return d, nil
		}
		p.pos++
		elem, err := p.descriptor()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, fmt.Errorf("missing ')' in type descriptor %q", p.src)
		}
		p.pos++
		d.Elem = elem
		return d, nil
	}

	if hasArgs {
		return nil, fmt.Errorf("type %q does not take parameters", name)
	}
	switch lower {
	case "int", "integer":
		return &Descriptor{Kind: Int}, nil
	case "float", "double":
		return &Descriptor{Kind: Float}, nil
	case "str", "string":
		return &Descriptor{Kind: Str}, nil
	case "bool", "boolean":
		return &Descriptor{Kind: Bool}, nil
	}
	if strings.Contains(name, ".") {
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
			return nil, fmt.Errorf("malformed class path %q", name)
		}
		return &Descriptor{Kind: Class, Name: name}, nil
	}
	return &Descriptor{Kind: Untyped, Name: name}, nil
}
