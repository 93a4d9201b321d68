package metafile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/storage"
)

const calcYAML = `module: calc
conventions: python
doc: Arithmetic helpers.
routines:
  - name: sub
    params: [a, b]
    doc: Subtracts b from a.
  - name: add
    params: ["a: int", "b: int = 0"]
    results: "-> int"
    doc: |
        Adds two numbers.

        Returns the sum.
  - name: raw
    doc: |
      raw(x, y)

      Native routine.
  - name: nop
    params: []
classes:
  - name: Calculator
    routines:
      - name: clear
        params: [self]
    classes:
      - name: Memory
        routines:
          - name: recall
`

func newTestProvider(t *testing.T, files map[string]string) *Provider {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for name, content := range files {
		if err := store.Write(name, []byte(content)); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolve(t *testing.T) {
	p := newTestProvider(t, map[string]string{"calc.yaml": calcYAML})
	ctx := context.Background()

	tests := []struct {
		path    string
		kind    introspect.Kind
		wantErr error
	}{
		{"calc", introspect.KindModule, nil},
		{"calc.Calculator", introspect.KindClass, nil},
		{"calc.Calculator.Memory", introspect.KindClass, nil},
		{"calc.add", 0, apperr.ErrTypeKind},
		{"calc.Missing", 0, apperr.ErrResolution},
		{"nosuch", 0, apperr.ErrResolution},
		{"calc..add", 0, apperr.ErrResolution},
	}
	for _, tt := range tests {
		e, err := p.Resolve(ctx, tt.path)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.path, err)
			continue
		}
		if e.Kind != tt.kind {
			t.Errorf("Resolve(%q).Kind = %v, want %v", tt.path, e.Kind, tt.kind)
		}
		if e.Path != tt.path {
			t.Errorf("Resolve(%q).Path = %q", tt.path, e.Path)
		}
	}
}

func TestResolveLongestFileWins(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"pkg.yaml":     "module: pkg\nroutines:\n  - name: outer\n",
		"pkg.sub.yaml": "module: pkg.sub\nkind: class\nroutines:\n  - name: inner\n",
	})
	e, err := p.Resolve(context.Background(), "pkg.sub")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !e.IsClass() {
		t.Errorf("kind = %v, want class", e.Kind)
	}
	members := p.ListMembers(e)
	if len(members) != 1 || members[0].Name != "inner" {
		t.Errorf("members = %+v, want [inner]", members)
	}
}

func TestListMembersSorted(t *testing.T) {
	p := newTestProvider(t, map[string]string{"calc.yaml": calcYAML})
	e, err := p.Resolve(context.Background(), "calc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var names []string
	for _, r := range p.ListMembers(e) {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"add", "nop", "raw", "sub"}, names); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentationAndSignature(t *testing.T) {
	p := newTestProvider(t, map[string]string{"calc.yaml": calcYAML})
	e, err := p.Resolve(context.Background(), "calc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	byName := map[string]introspect.Routine{}
	for _, r := range p.ListMembers(e) {
		byName[r.Name] = r
	}

	if got, want := p.Documentation(byName["add"]), "Adds two numbers.\n\nReturns the sum."; got != want {
		t.Errorf("Documentation(add) = %q, want %q", got, want)
	}
	if got := p.Documentation(byName["nop"]); got != "" {
		t.Errorf("Documentation(nop) = %q, want empty", got)
	}

	sig, ok := p.TrySignature(byName["add"])
	if !ok {
		t.Fatal("TrySignature(add) failed")
	}
	if got, want := sig.String(), "(a: int, b: int = 0) -> int"; got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
	if sig.Params[1].Name != "b" {
		t.Errorf("param name = %q, want b", sig.Params[1].Name)
	}

	if sig, ok := p.TrySignature(byName["nop"]); !ok || sig.String() != "()" {
		t.Errorf("TrySignature(nop) = %q, %v; want \"()\", true", sig.String(), ok)
	}
	if _, ok := p.TrySignature(byName["raw"]); ok {
		t.Error("TrySignature(raw) succeeded without params")
	}
}

func TestConventions(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"calc.yaml":  calcYAML,
		"gopkg.yaml": "module: gopkg\nconventions: go\n",
	})
	ctx := context.Background()
	for path, want := range map[string]string{"calc": "python", "gopkg": "go"} {
		e, err := p.Resolve(ctx, path)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", path, err)
		}
		if got := p.Conventions(e).Name(); got != want {
			t.Errorf("Conventions(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestModules(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"calc.yaml":     calcYAML,
		"os.path.yml":   "module: os.path\n",
		"json.json":     `{"module": "json"}`,
		"notes.txt":     "ignored",
		"nested/x.yaml": "module: x\n",
		".hidden.yaml":  "module: hidden\n",
	})
	got, err := p.Modules()
	if err != nil {
		t.Fatalf("Modules: %v", err)
	}
	if diff := cmp.Diff([]string{"calc", "json", "os.path"}, got); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedFile(t *testing.T) {
	p := newTestProvider(t, map[string]string{"bad.yaml": "module: [unclosed\n"})
	_, err := p.Resolve(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.Is(err, apperr.ErrResolution) {
		t.Errorf("parse error should not be a resolution error: %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	src := newTestProvider(t, map[string]string{"calc.yaml": calcYAML})
	ctx := context.Background()
	e, err := src.Resolve(ctx, "calc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	f := Encode(src, e)
	if f.Module != "calc" || f.Kind != "module" || f.Conventions != "python" {
		t.Errorf("header = %q %q %q", f.Module, f.Kind, f.Conventions)
	}

	dst := newTestProvider(t, nil)
	name, err := Save(dst.store, f)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "calc.yaml" {
		t.Errorf("Save name = %q", name)
	}
	e2, err := dst.Resolve(ctx, "calc")
	if err != nil {
		t.Fatalf("Resolve after save: %v", err)
	}
	a, b := src.ListMembers(e), dst.ListMembers(e2)
	if len(a) != len(b) {
		t.Fatalf("members = %d, want %d", len(b), len(a))
	}
	for i := range a {
		if src.Documentation(a[i]) != dst.Documentation(b[i]) {
			t.Errorf("%s: doc changed after round trip", a[i].Name)
		}
		s1, ok1 := src.TrySignature(a[i])
		s2, ok2 := dst.TrySignature(b[i])
		if ok1 != ok2 || s1.String() != s2.String() {
			t.Errorf("%s: signature %q/%v -> %q/%v", a[i].Name, s1.String(), ok1, s2.String(), ok2)
		}
	}
}

func TestParamName(t *testing.T) {
	tests := map[string]string{
		"a":          "a",
		"*args":      "args",
		"**kw":       "kw",
		"b: int = 2": "b",
		"c=3":        "c",
		"s string":   "s",
		"  self  ":   "self",
	}
	for in, want := range tests {
		if got := paramName(in); got != want {
			t.Errorf("paramName(%q) = %q, want %q", in, got, want)
		}
	}
}
