// Package pysrc resolves Python modules and classes by parsing source files
// found on a list of search roots, the way an import system would locate
// them. Nothing is executed: routines, docstrings and parameter lists are
// read from the syntax tree produced by tree-sitter.
package pysrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/docstring"
	"github.com/starford/liblearn/internal/introspect"
)

// Provider parses modules found under its search roots. Parsed files are
// cached until Invalidate is called.
type Provider struct {
	roots  []string
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*scope
}

var _ introspect.Provider = (*Provider)(nil)

// New creates a provider searching roots in order.
func New(roots []string, logger *slog.Logger) *Provider {
	return &Provider{roots: roots, logger: logger, cache: make(map[string]*scope)}
}

// Roots returns the search roots.
func (p *Provider) Roots() []string { return p.roots }

// Invalidate drops every cached module.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.cache)
}

// Resolve locates the longest dotted prefix of path that is a module file
// and walks the remaining segments through its class definitions.
func (p *Provider) Resolve(ctx context.Context, path string) (*introspect.Entity, error) {
	if !introspect.ValidPath(path) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrResolution, path)
	}
	for _, split := range introspect.Splits(path) {
		file, ok := p.locate(split.Head)
		if !ok {
			continue
		}
		mod, err := p.parse(ctx, file)
		if err != nil {
			return nil, err
		}
		return walk(path, mod, split.Tail)
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
}

func walk(path string, mod *scope, tail []string) (*introspect.Entity, error) {
	cur, kind := mod, introspect.KindModule
	for _, name := range tail {
		idx := lastClass(cur.classes, name)
		if idx < 0 {
			if slices.ContainsFunc(cur.funcs, func(f *function) bool { return f.name == name }) {
				return nil, fmt.Errorf("%w: %s is a function", apperr.ErrTypeKind, path)
			}
			return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
		}
		cur, kind = &cur.classes[idx].scope, introspect.KindClass
	}
	return &introspect.Entity{Path: path, Kind: kind, Handle: cur}, nil
}

// lastClass returns the index of the last class named name; a redefinition
// shadows earlier ones.
func lastClass(classes []*class, name string) int {
	for i := len(classes) - 1; i >= 0; i-- {
		if classes[i].name == name {
			return i
		}
	}
	return -1
}

// ListMembers returns the functions defined directly in the entity's body,
// sorted by name. A redefined name is listed once with its last definition.
func (p *Provider) ListMembers(e *introspect.Entity) []introspect.Routine {
	s, ok := e.Handle.(*scope)
	if !ok {
		return nil
	}
	last := make(map[string]*function, len(s.funcs))
	for _, fn := range s.funcs {
		last[fn.name] = fn
	}
	out := make([]introspect.Routine, 0, len(last))
	for name, fn := range last {
		out = append(out, introspect.Routine{Name: name, Owner: e, Handle: fn})
	}
	slices.SortFunc(out, func(a, b introspect.Routine) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Documentation returns the cleaned docstring of r.
func (p *Provider) Documentation(r introspect.Routine) string {
	fn, ok := r.Handle.(*function)
	if !ok {
		return ""
	}
	return docstring.Clean(fn.doc)
}

// TrySignature returns the parameter list as written in the definition,
// including the instance parameter of methods.
func (p *Provider) TrySignature(r introspect.Routine) (introspect.Signature, bool) {
	fn, ok := r.Handle.(*function)
	if !ok {
		return introspect.Signature{}, false
	}
	return introspect.Signature{Params: slices.Clone(fn.params), Results: fn.returns}, true
}

// Conventions always returns introspect.Python.
func (p *Provider) Conventions(*introspect.Entity) introspect.Conventions {
	return introspect.Python
}

// locate maps a dotted module name to a source file: "a.b" is a/b.py or
// a/b/__init__.py under the first root that has either.
func (p *Provider) locate(module string) (string, bool) {
	rel := filepath.Join(strings.Split(module, ".")...)
	for _, root := range p.roots {
		for _, candidate := range []string{rel + ".py", filepath.Join(rel, "__init__.py")} {
			file := filepath.Join(root, candidate)
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				return file, true
			}
		}
	}
	return "", false
}

func (p *Provider) parse(ctx context.Context, file string) (*scope, error) {
	p.mu.Lock()
	s, ok := p.cache[file]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	src, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, file)
		}
		return nil, fmt.Errorf("pysrc: read %s: %w", file, err)
	}
	s, err = parseModule(ctx, src)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("pysrc: parsed",
		slog.String("file", file),
		slog.Int("functions", len(s.funcs)),
		slog.Int("classes", len(s.classes)),
	)

	p.mu.Lock()
	p.cache[file] = s
	p.mu.Unlock()
	return s, nil
}
