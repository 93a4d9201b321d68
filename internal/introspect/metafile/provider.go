package metafile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/docstring"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/storage"
)

// Provider resolves dotted paths against metadata files in a storage root.
type Provider struct {
	store  storage.Provider
	logger *slog.Logger
}

var _ introspect.Provider = (*Provider)(nil)

type container struct {
	conv     introspect.Conventions
	routines []RoutineSpec
}

// New creates a metadata provider over store.
func New(store storage.Provider, logger *slog.Logger) *Provider {
	return &Provider{store: store, logger: logger}
}

// Resolve finds the longest dotted prefix of path that names a metadata
// file and walks the remaining segments through its nested classes.
func (p *Provider) Resolve(_ context.Context, path string) (*introspect.Entity, error) {
	if !introspect.ValidPath(path) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrResolution, path)
	}
	for _, split := range introspect.Splits(path) {
		f, ok, err := p.load(split.Head)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return walk(path, f, split.Tail)
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
}

// ListMembers returns the routines of e sorted by name.
func (p *Provider) ListMembers(e *introspect.Entity) []introspect.Routine {
	c, ok := e.Handle.(*container)
	if !ok {
		return nil
	}
	out := make([]introspect.Routine, 0, len(c.routines))
	for i := range c.routines {
		spec := &c.routines[i]
		out = append(out, introspect.Routine{Name: spec.Name, Owner: e, Handle: spec})
	}
	slices.SortStableFunc(out, func(a, b introspect.Routine) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Documentation returns the cleaned documentation of r.
func (p *Provider) Documentation(r introspect.Routine) string {
	spec, ok := r.Handle.(*RoutineSpec)
	if !ok {
		return ""
	}
	return docstring.Clean(spec.Doc)
}

// TrySignature succeeds only when the metadata lists the routine's params.
func (p *Provider) TrySignature(r introspect.Routine) (introspect.Signature, bool) {
	spec, ok := r.Handle.(*RoutineSpec)
	if !ok || spec.Params == nil {
		return introspect.Signature{}, false
	}
	params := make([]introspect.Param, len(*spec.Params))
	for i, text := range *spec.Params {
		params[i] = introspect.Param{Name: paramName(text), Text: strings.TrimSpace(text)}
	}
	return introspect.Signature{Params: params, Results: spec.Results}, true
}

// Conventions returns the naming rules declared by the entity's file.
func (p *Provider) Conventions(e *introspect.Entity) introspect.Conventions {
	if c, ok := e.Handle.(*container); ok {
		return c.conv
	}
	return introspect.Python
}

// Modules lists the dotted paths of every metadata file in the root.
func (p *Provider) Modules() ([]string, error) {
	metas, err := p.store.List("", Extensions...)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range metas {
		if strings.Contains(m.Path, "/") {
			continue
		}
		name := m.Path
		for _, ext := range Extensions {
			name = strings.TrimSuffix(name, ext)
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// load reads and decodes the metadata file for a dotted name.
func (p *Provider) load(name string) (*File, bool, error) {
	for _, ext := range Extensions {
		data, err := p.store.Read(name + ext)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, false, err
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, false, fmt.Errorf("metafile: parse %s%s: %w", name, ext, err)
		}
		if f.Module == "" {
			f.Module = name
		}
		p.logger.Debug("metafile: loaded", slog.String("file", name+ext))
		return &f, true, nil
	}
	return nil, false, nil
}

func walk(path string, f *File, tail []string) (*introspect.Entity, error) {
	kind, ok := introspect.ParseKind(f.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s declares kind %q", apperr.ErrTypeKind, f.Module, f.Kind)
	}
	routines, classes := f.Routines, f.Classes
	for _, name := range tail {
		idx := slices.IndexFunc(classes, func(c ClassSpec) bool { return c.Name == name })
		if idx < 0 {
			if slices.ContainsFunc(routines, func(r RoutineSpec) bool { return r.Name == name }) {
				return nil, fmt.Errorf("%w: %s is a routine", apperr.ErrTypeKind, path)
			}
			return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
		}
		kind = introspect.KindClass
		routines, classes = classes[idx].Routines, classes[idx].Classes
	}
	return &introspect.Entity{
		Path: path,
		Kind: kind,
		Handle: &container{
			conv:     introspect.ConventionsByName(f.Conventions),
			routines: routines,
		},
	}, nil
}
