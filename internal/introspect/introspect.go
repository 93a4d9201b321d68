// Package introspect defines the reflection-provider contract that feeds the
// deck pipeline: resolving a dotted path to an entity, listing its routines,
// and answering documentation and signature queries for each routine.
//
// Concrete providers live in subpackages: gopkg (Go packages loaded with
// golang.org/x/tools/go/packages), pysrc (Python source parsed with
// tree-sitter) and metafile (pre-extracted metadata files).
package introspect

import (
	"context"
	"strings"
)

// Kind classifies a resolved entity.
type Kind int

const (
	KindModule Kind = iota
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class":
		return KindClass, true
	case "module", "":
		return KindModule, true
	default:
		return 0, false
	}
}

// Entity is a resolved class or module.
type Entity struct {
	Path string
	Kind Kind
	// Handle is owned by the provider that resolved the entity.
	Handle any
}

// IsClass reports whether routines of e take an implicit instance parameter.
func (e *Entity) IsClass() bool { return e.Kind == KindClass }

// Routine is a function, method or builtin belonging to an Entity.
type Routine struct {
	Name  string
	Owner *Entity
	// Handle is owned by the provider that listed the routine.
	Handle any
}

// Param is one parameter descriptor, rendered in the source language's syntax.
type Param struct {
	Name string
	Text string
}

// Signature is a routine's call signature. Raw, when set, is a parenthesized
// fragment recovered from documentation text and takes precedence over Params.
type Signature struct {
	Params  []Param
	Results string
	Raw     string
}

// String renders the signature as it appears in a card prompt.
func (s Signature) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Text
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if s.Results != "" {
		out += " " + s.Results
	}
	return out
}

// Provider is the reflection capability the deck pipeline is built against.
type Provider interface {
	// Resolve turns a dotted path into a live entity. It fails with
	// apperr.ErrResolution when nothing exists at path and apperr.ErrTypeKind
	// when the object is neither a class nor a module.
	Resolve(ctx context.Context, path string) (*Entity, error)
	// ListMembers returns the routines of e sorted by name.
	ListMembers(e *Entity) []Routine
	// Documentation returns the raw documentation of r, or "" when it has none.
	Documentation(r Routine) string
	// TrySignature reports the directly introspected signature of r.
	TrySignature(r Routine) (Signature, bool)
	// Conventions returns the naming rules that apply to the routines of e.
	Conventions(e *Entity) Conventions
}

// Split is one way of cutting a dotted path into a container and the
// attribute chain inside it.
type Split struct {
	Head string
	Tail []string
}

// Splits lists every split of path, longest head first. "a.b.C" yields
// {a.b.C []}, {a.b [C]}, {a [b C]}.
func Splits(path string) []Split {
	parts := strings.Split(path, ".")
	out := make([]Split, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, Split{
			Head: strings.Join(parts[:i], "."),
			Tail: parts[i:],
		})
	}
	return out
}

// ValidPath reports whether path is a non-empty dotted name without empty
// segments.
func ValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, p := range strings.Split(path, ".") {
		if p == "" {
			return false
		}
	}
	return true
}
