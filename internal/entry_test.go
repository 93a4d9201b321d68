package internal

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/liblearn/internal/apperr"
	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/testutil"
	"github.com/starford/liblearn/internal/watch"
)

const calcMeta = `module: calc
conventions: python
routines:
  - name: add
    params: [a, b]
    doc: |
      Adds two numbers.

      Returns the sum.
  - name: _hidden
    params: []
    doc: Hidden.
classes:
  - name: Calculator
    routines:
      - name: mul
        doc: |
          mul(a, b)

          Multiplies two numbers.
`

const emptyMeta = `module: empty
conventions: python
routines:
  - name: _only
    params: []
    doc: Private.
`

// metaConfig returns a valid configuration over a metadata directory holding
// the calc and empty modules.
func metaConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "meta")
	if err := os.Mkdir(metaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{"calc.yaml": calcMeta, "empty.yaml": emptyMeta} {
		if err := os.WriteFile(filepath.Join(metaDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := NewDefaultConfig()
	cfg.App.LogDir = ""
	cfg.Source.Kind = SourceMeta
	cfg.Source.MetaDir = metaDir
	cfg.Report.SQLitePath = filepath.Join(dir, "liblearn.db")
	return cfg
}

func newTestApp(t *testing.T, cfg *Config, in string, opts ...Option) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{
		WithConfig(cfg),
		WithLogger(testutil.Logger()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithIO(strings.NewReader(in), &out),
	}, opts...)
	a, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, &out
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("New without config succeeded")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := metaConfig(t)
	cfg.Source.Kind = "ruby"
	if _, err := New(WithConfig(cfg), WithLogger(testutil.Logger())); err == nil {
		t.Fatal("New with unknown source kind succeeded")
	}
}

func TestNewMissingMetaDir(t *testing.T) {
	cfg := metaConfig(t)
	cfg.Source.MetaDir = filepath.Join(t.TempDir(), "absent")
	if _, err := New(WithConfig(cfg), WithLogger(testutil.Logger())); err == nil {
		t.Fatal("New with a missing metadata dir succeeded")
	}
}

func TestLearn(t *testing.T) {
	a, out := newTestApp(t, metaConfig(t), "\n\n")

	if err := a.Learn(context.Background(), "calc"); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	want := "\n\n\n\ncalc.add(a, b)--------------\nAdds two numbers."
	if got := out.String(); got != want {
		t.Errorf("session output = %q, want %q", got, want)
	}
}

func TestLearnClass(t *testing.T) {
	cfg := metaConfig(t)
	cfg.Deck.Full = true
	a, out := newTestApp(t, cfg, "\n\n")

	if err := a.Learn(context.Background(), "calc.Calculator"); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if !strings.Contains(out.String(), "calc.Calculator.mul(self, a, b)") {
		t.Errorf("missing fallback prompt in %q", out.String())
	}
	if !strings.Contains(out.String(), "Multiplies two numbers.") {
		t.Errorf("missing answer in %q", out.String())
	}
}

func TestLearnErrors(t *testing.T) {
	a, _ := newTestApp(t, metaConfig(t), "")
	ctx := context.Background()

	if err := a.Learn(ctx, "calc.missing"); !errors.Is(err, apperr.ErrResolution) {
		t.Errorf("missing target err = %v, want ErrResolution", err)
	}
	if err := a.Learn(ctx, "calc.add"); !errors.Is(err, apperr.ErrTypeKind) {
		t.Errorf("routine target err = %v, want ErrTypeKind", err)
	}
	if err := a.Learn(ctx, "empty"); !errors.Is(err, apperr.ErrEmptyEntity) {
		t.Errorf("empty target err = %v, want ErrEmptyEntity", err)
	}
}

func TestBatchReferenceList(t *testing.T) {
	a, _ := newTestApp(t, metaConfig(t), "")
	ctx := context.Background()

	ref, err := a.ReferencePaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"calc", "empty"}, ref); diff != "" {
		t.Errorf("reference list mismatch (-want +got):\n%s", diff)
	}

	run, err := a.Batch(ctx, nil, false, false)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	var got []string
	for _, r := range run.Results {
		got = append(got, batch.FormatResult(r))
	}
	if diff := cmp.Diff([]string{"calc: 100.00", "empty: -100.00"}, got); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchRecordAndHistory(t *testing.T) {
	a, out := newTestApp(t, metaConfig(t), "", WithReports())
	ctx := context.Background()

	run, err := a.Batch(ctx, []string{"calc", "calc.Calculator"}, true, true)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if run.ID == 0 || run.Source != SourceMeta {
		t.Errorf("run = %+v", run)
	}

	if err := a.History(ctx, 5); err != nil {
		t.Fatalf("History: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") || !strings.HasPrefix(lines[1], "1 ") {
		t.Errorf("history table = %q", lines)
	}
}

func TestHistoryWithoutReports(t *testing.T) {
	a, _ := newTestApp(t, metaConfig(t), "")
	if err := a.History(context.Background(), 5); err == nil {
		t.Error("History without report database succeeded")
	}
}

func TestDump(t *testing.T) {
	a, _ := newTestApp(t, metaConfig(t), "")
	dir := filepath.Join(t.TempDir(), "out")

	name, err := a.Dump(context.Background(), "calc.Calculator", dir)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "module: calc.Calculator") || !strings.Contains(string(data), "name: mul") {
		t.Errorf("dump = %s", data)
	}
}

func TestWatchOptions(t *testing.T) {
	tests := []struct {
		cfg  SourceConfig
		want watch.Options
	}{
		{SourceConfig{Kind: SourceGo}, watch.Options{Roots: []string{"."}, Exts: []string{".go"}}},
		{SourceConfig{Kind: SourceGo, GoDir: "src"}, watch.Options{Roots: []string{"src"}, Exts: []string{".go"}}},
		{SourceConfig{Kind: SourcePython, PythonPaths: []string{"a", "b"}}, watch.Options{Roots: []string{"a", "b"}, Exts: []string{".py"}}},
		{SourceConfig{Kind: SourceMeta, MetaDir: "meta"}, watch.Options{Roots: []string{"meta"}, Exts: []string{".yaml", ".yml", ".json"}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, watchOptions(tt.cfg)); diff != "" {
			t.Errorf("watchOptions(%+v) mismatch (-want +got):\n%s", tt.cfg, diff)
		}
	}
}

func TestNewProviderKinds(t *testing.T) {
	logger := testutil.Logger()
	for _, kind := range []string{SourceGo, SourcePython} {
		if _, err := newProvider(SourceConfig{Kind: kind, PythonPaths: []string{"."}}, logger); err != nil {
			t.Errorf("newProvider(%s): %v", kind, err)
		}
	}
	if _, err := newProvider(SourceConfig{Kind: "ruby"}, logger); err == nil {
		t.Error("newProvider accepted unknown kind")
	}
	if !slices.Contains([]string{SourceGo, SourcePython, SourceMeta}, NewDefaultConfig().Source.Kind) {
		t.Error("default source kind is not a known kind")
	}
}
