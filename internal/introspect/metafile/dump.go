package metafile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/storage"
)

// Encode snapshots the routines of e, as seen through p, into a File that
// this package can later serve without live introspection.
func Encode(p introspect.Provider, e *introspect.Entity) *File {
	f := &File{
		Module:      e.Path,
		Kind:        e.Kind.String(),
		Conventions: p.Conventions(e).Name(),
	}
	for _, r := range p.ListMembers(e) {
		spec := RoutineSpec{Name: r.Name, Doc: p.Documentation(r)}
		if sig, ok := p.TrySignature(r); ok && sig.Raw == "" {
			params := make([]string, len(sig.Params))
			for i, param := range sig.Params {
				params[i] = param.Text
			}
			spec.Params = &params
			spec.Results = sig.Results
		}
		f.Routines = append(f.Routines, spec)
	}
	return f
}

// Save writes f to "<module>.yaml" in store and returns the relative path.
func Save(store storage.Provider, f *File) (string, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("metafile: encode %s: %w", f.Module, err)
	}
	name := f.Module + ".yaml"
	if err := store.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}
