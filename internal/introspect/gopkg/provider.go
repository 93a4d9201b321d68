// Package gopkg resolves Go packages and named types with
// golang.org/x/tools/go/packages and reads routine signatures from go/types.
//
// A path without a type suffix ("net/http") resolves to a module; a path
// ending in ".Name" after the last slash ("net/http.Client") resolves to a
// class whose routines are the methods declared on that type.
package gopkg

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/introspect"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedImports |
	packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo

// Provider loads packages relative to a working directory. Loaded packages
// are cached until Invalidate is called.
type Provider struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*loaded
}

var _ introspect.Provider = (*Provider)(nil)

type loaded struct {
	pkg  *packages.Package
	docs map[token.Pos]string
}

type entityHandle struct {
	pkg   *loaded
	named *types.Named // nil for a module
}

type routineHandle struct {
	pkg *loaded
	fn  *types.Func
}

// New creates a provider that runs the go command in dir ("" for the
// process working directory).
func New(dir string, logger *slog.Logger) *Provider {
	return &Provider{dir: dir, logger: logger, cache: make(map[string]*loaded)}
}

// Invalidate drops every cached package.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.cache)
}

// Resolve loads the package named by path, or the package prefix of path
// and a named type inside it.
func (p *Provider) Resolve(ctx context.Context, path string) (*introspect.Entity, error) {
	if path == "" || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return nil, fmt.Errorf("%w: %q", apperr.ErrResolution, path)
	}
	for _, c := range candidates(path) {
		l, err := p.load(ctx, c.Head)
		if err != nil {
			return nil, err
		}
		if l == nil {
			continue
		}
		if len(c.Tail) == 0 {
			return &introspect.Entity{Path: path, Kind: introspect.KindModule, Handle: &entityHandle{pkg: l}}, nil
		}
		return resolveType(path, l, c.Tail)
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
}

// candidates splits path at every dot of its last slash-separated segment,
// longest package path first.
func candidates(path string) []introspect.Split {
	slash := strings.LastIndex(path, "/") + 1
	prefix, last := path[:slash], path[slash:]
	var out []introspect.Split
	for _, s := range introspect.Splits(last) {
		out = append(out, introspect.Split{Head: prefix + s.Head, Tail: s.Tail})
	}
	return out
}

func resolveType(path string, l *loaded, tail []string) (*introspect.Entity, error) {
	obj := l.pkg.Types.Scope().Lookup(tail[0])
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", apperr.ErrTypeKind, path, objectKind(obj))
	}
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a named type", apperr.ErrTypeKind, path)
	}
	if len(tail) == 2 {
		if m, _, _ := types.LookupFieldOrMethod(named, true, l.pkg.Types, tail[1]); m != nil {
			return nil, fmt.Errorf("%w: %s is a %s", apperr.ErrTypeKind, path, objectKind(m))
		}
	}
	if len(tail) > 1 {
		return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
	}
	return &introspect.Entity{
		Path:   path,
		Kind:   introspect.KindClass,
		Handle: &entityHandle{pkg: l, named: named},
	}, nil
}

func objectKind(obj types.Object) string {
	switch obj.(type) {
	case *types.Func:
		return "function"
	case *types.Var:
		return "variable"
	case *types.Const:
		return "constant"
	default:
		return "non-type object"
	}
}

// ListMembers returns the package-level functions of a module, or the
// declared methods of a class (the method set of an interface), sorted by
// name.
func (p *Provider) ListMembers(e *introspect.Entity) []introspect.Routine {
	h, ok := e.Handle.(*entityHandle)
	if !ok {
		return nil
	}
	var fns []*types.Func
	switch {
	case h.named == nil:
		scope := h.pkg.pkg.Types.Scope()
		for _, name := range scope.Names() {
			if fn, ok := scope.Lookup(name).(*types.Func); ok {
				fns = append(fns, fn)
			}
		}
	case types.IsInterface(h.named):
		iface := h.named.Underlying().(*types.Interface)
		for i := 0; i < iface.NumMethods(); i++ {
			fns = append(fns, iface.Method(i))
		}
	default:
		for i := 0; i < h.named.NumMethods(); i++ {
			fns = append(fns, h.named.Method(i))
		}
	}
	slices.SortFunc(fns, func(a, b *types.Func) int { return strings.Compare(a.Name(), b.Name()) })

	out := make([]introspect.Routine, len(fns))
	for i, fn := range fns {
		out[i] = introspect.Routine{Name: fn.Name(), Owner: e, Handle: &routineHandle{pkg: h.pkg, fn: fn}}
	}
	return out
}

// Documentation returns the doc comment attached to the routine's
// declaration, or "" when it has none or is declared in another package.
func (p *Provider) Documentation(r introspect.Routine) string {
	h, ok := r.Handle.(*routineHandle)
	if !ok {
		return ""
	}
	return h.pkg.docs[h.fn.Pos()]
}

// TrySignature renders the routine's parameters and results with types
// qualified relative to the declaring package. It always succeeds.
func (p *Provider) TrySignature(r introspect.Routine) (introspect.Signature, bool) {
	h, ok := r.Handle.(*routineHandle)
	if !ok {
		return introspect.Signature{}, false
	}
	sig, ok := h.fn.Type().(*types.Signature)
	if !ok {
		return introspect.Signature{}, false
	}
	qf := types.RelativeTo(h.pkg.pkg.Types)

	params := make([]introspect.Param, sig.Params().Len())
	for i := range params {
		v := sig.Params().At(i)
		var typ string
		if sig.Variadic() && i == len(params)-1 {
			typ = "..." + types.TypeString(v.Type().(*types.Slice).Elem(), qf)
		} else {
			typ = types.TypeString(v.Type(), qf)
		}
		text := typ
		if v.Name() != "" {
			text = v.Name() + " " + typ
		}
		params[i] = introspect.Param{Name: v.Name(), Text: text}
	}
	return introspect.Signature{Params: params, Results: results(sig.Results(), qf)}, true
}

func results(tuple *types.Tuple, qf types.Qualifier) string {
	switch {
	case tuple.Len() == 0:
		return ""
	case tuple.Len() == 1 && tuple.At(0).Name() == "":
		return types.TypeString(tuple.At(0).Type(), qf)
	}
	parts := make([]string, tuple.Len())
	for i := range parts {
		v := tuple.At(i)
		parts[i] = types.TypeString(v.Type(), qf)
		if v.Name() != "" {
			parts[i] = v.Name() + " " + parts[i]
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Conventions always returns introspect.Go.
func (p *Provider) Conventions(*introspect.Entity) introspect.Conventions {
	return introspect.Go
}

// Packages lists the import paths matched by patterns, skipping internal
// and vendored packages.
func (p *Provider) Packages(ctx context.Context, patterns ...string) ([]string, error) {
	cfg := &packages.Config{Context: ctx, Dir: p.dir, Mode: packages.NeedName}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("gopkg: list %v: %w", patterns, err)
	}
	var out []string
	for _, pkg := range pkgs {
		if isHidden(pkg.PkgPath) {
			continue
		}
		out = append(out, pkg.PkgPath)
	}
	slices.Sort(out)
	return out, nil
}

func isHidden(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == "internal" || seg == "vendor" || seg == "testdata" {
			return true
		}
	}
	return false
}

// load returns the cached or freshly loaded package at importPath, or nil
// when no such package exists.
func (p *Provider) load(ctx context.Context, importPath string) (*loaded, error) {
	p.mu.Lock()
	l, ok := p.cache[importPath]
	p.mu.Unlock()
	if ok {
		return l, nil
	}

	cfg := &packages.Config{Context: ctx, Dir: p.dir, Mode: loadMode}
	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("gopkg: load %s: %w", importPath, err)
	}
	if len(pkgs) != 1 || len(pkgs[0].Errors) > 0 || pkgs[0].Types == nil || pkgs[0].PkgPath != importPath {
		if len(pkgs) == 1 && len(pkgs[0].Errors) > 0 {
			p.logger.Debug("gopkg: load failed",
				slog.String("path", importPath),
				slog.String("error", pkgs[0].Errors[0].Error()),
			)
		}
		return nil, nil
	}

	l = &loaded{pkg: pkgs[0], docs: collectDocs(pkgs[0].Syntax)}
	p.mu.Lock()
	p.cache[importPath] = l
	p.mu.Unlock()
	return l, nil
}

// collectDocs indexes doc comments by the position of the declared name,
// which is also the position go/types reports for the object.
func collectDocs(files []*ast.File) map[token.Pos]string {
	docs := make(map[token.Pos]string)
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Doc != nil {
					docs[d.Name.Pos()] = strings.TrimSpace(d.Doc.Text())
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					it, ok := ts.Type.(*ast.InterfaceType)
					if !ok {
						continue
					}
					for _, field := range it.Methods.List {
						if field.Doc == nil {
							continue
						}
						for _, name := range field.Names {
							docs[name.Pos()] = strings.TrimSpace(field.Doc.Text())
						}
					}
				}
			}
		}
	}
	return docs
}
