// Package testutil provides shared test helpers: a scriptable reflection
// provider, temporary storage roots and report databases.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/report"
	"github.com/starford/liblearn/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary report database that is automatically cleaned up.
func TestDB(t *testing.T) *report.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "liblearn-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := report.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Routine describes a routine served by Provider. A nil Params means the
// routine cannot be introspected.
type Routine struct {
	Name    string
	Doc     string
	Params  []string
	Results string
}

// Entity describes an entity served by Provider.
type Entity struct {
	Kind     introspect.Kind
	Routines []Routine
	// Conventions defaults to introspect.Python.
	Conventions introspect.Conventions
}

// Provider is an in-memory introspect.Provider.
type Provider struct {
	mu       sync.Mutex
	entities map[string]Entity
	resolves int
}

var _ introspect.Provider = (*Provider)(nil)

// NewProvider creates a provider serving entities keyed by dotted path.
// Paths that are a prefix of a served path plus ".name" where name is a
// routine fail with apperr.ErrTypeKind.
func NewProvider(entities map[string]Entity) *Provider {
	return &Provider{entities: entities}
}

// Set adds or replaces an entity.
func (p *Provider) Set(path string, e Entity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities[path] = e
}

// Resolves returns how many times Resolve has been called.
func (p *Provider) Resolves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolves
}

func (p *Provider) Resolve(_ context.Context, path string) (*introspect.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolves++
	if e, ok := p.entities[path]; ok {
		return &introspect.Entity{Path: path, Kind: e.Kind, Handle: e}, nil
	}
	if i := strings.LastIndex(path, "."); i > 0 {
		if owner, ok := p.entities[path[:i]]; ok {
			name := path[i+1:]
			if slices.ContainsFunc(owner.Routines, func(r Routine) bool { return r.Name == name }) {
				return nil, fmt.Errorf("%w: %s", apperr.ErrTypeKind, path)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrResolution, path)
}

func (p *Provider) ListMembers(e *introspect.Entity) []introspect.Routine {
	spec, ok := e.Handle.(Entity)
	if !ok {
		return nil
	}
	out := make([]introspect.Routine, len(spec.Routines))
	for i, r := range spec.Routines {
		out[i] = introspect.Routine{Name: r.Name, Owner: e, Handle: r}
	}
	slices.SortStableFunc(out, func(a, b introspect.Routine) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (p *Provider) Documentation(r introspect.Routine) string {
	spec, _ := r.Handle.(Routine)
	return spec.Doc
}

func (p *Provider) TrySignature(r introspect.Routine) (introspect.Signature, bool) {
	spec, ok := r.Handle.(Routine)
	if !ok || spec.Params == nil {
		return introspect.Signature{}, false
	}
	params := make([]introspect.Param, len(spec.Params))
	for i, text := range spec.Params {
		params[i] = introspect.Param{Name: text, Text: text}
	}
	return introspect.Signature{Params: params, Results: spec.Results}, true
}

func (p *Provider) Conventions(e *introspect.Entity) introspect.Conventions {
	if spec, ok := e.Handle.(Entity); ok && spec.Conventions != nil {
		return spec.Conventions
	}
	return introspect.Python
}

// Calculator is a small class fixture: one special, one private, one
// deprecated, two documented public routines and one undocumented.
func Calculator() Entity {
	return Entity{
		Kind: introspect.KindClass,
		Routines: []Routine{
			{Name: "__init__", Doc: "Create a calculator.", Params: []string{"self"}},
			{Name: "_reset", Doc: "Reset state.", Params: []string{"self"}},
			{Name: "add", Doc: "Adds two numbers.\n\nReturns the sum.", Params: []string{"a", "b"}},
			{Name: "old_add", Doc: "Deprecated alias of add.", Params: []string{"a", "b"}},
			{Name: "mul", Doc: "mul(a, b)\n\nMultiplies two numbers.\n\nReturns the product."},
			{Name: "noop", Params: []string{}},
		},
	}
}
