package batch

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/report"
	"github.com/starford/liblearn/internal/testutil"
)

func newTestRunner(workers int) *Runner {
	p := testutil.NewProvider(map[string]testutil.Entity{
		"calc.Calculator": testutil.Calculator(),
		"full":            {Kind: introspect.KindModule, Routines: []testutil.Routine{
			{Name: "f", Doc: "F.", Params: []string{}},
		}},
		"empty": {Kind: introspect.KindModule},
	})
	b := deck.NewBuilder(p, rand.New(rand.NewPCG(1, 1)), testutil.Logger())
	return NewRunner(b, workers, testutil.Logger())
}

func TestRunKeepsInputOrderAndSentinel(t *testing.T) {
	for _, workers := range []int{0, 4} {
		r := newTestRunner(workers)
		got, err := r.Run(context.Background(), []string{"nosuch", "full", "empty", "calc.Calculator"}, deck.Options{Short: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var paths []string
		for _, res := range got {
			paths = append(paths, res.Path)
		}
		if diff := cmp.Diff([]string{"nosuch", "full", "empty", "calc.Calculator"}, paths); diff != "" {
			t.Errorf("workers=%d order mismatch (-want +got):\n%s", workers, diff)
		}
		for _, i := range []int{0, 2} {
			if got[i].Quality != Sentinel || got[i].Error == "" {
				t.Errorf("workers=%d %s = %+v, want sentinel with error", workers, got[i].Path, got[i])
			}
		}
		if got[1].Quality != 100 || got[1].Cards != 1 || got[1].Eligible != 1 {
			t.Errorf("workers=%d full = %+v", workers, got[1])
		}
	}
}

func TestRunCanceled(t *testing.T) {
	r := newTestRunner(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, []string{"full"}, deck.Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRank(t *testing.T) {
	results := []report.Result{
		{Path: "b", Quality: 50},
		{Path: "x", Quality: Sentinel},
		{Path: "a", Quality: 50},
		{Path: "c", Quality: 100},
	}

	Rank(results, false)
	want := []report.Result{
		{Rank: 1, Path: "c", Quality: 100},
		{Rank: 2, Path: "a", Quality: 50},
		{Rank: 3, Path: "b", Quality: 50},
		{Rank: 4, Path: "x", Quality: Sentinel},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("descending mismatch (-want +got):\n%s", diff)
	}

	Rank(results, true)
	var order []string
	for _, r := range results {
		order = append(order, r.Path)
	}
	if diff := cmp.Diff([]string{"x", "a", "b", "c"}, order); diff != "" {
		t.Errorf("ascending mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatResult(t *testing.T) {
	tests := map[string]report.Result{
		"json: 66.67":     {Path: "json", Quality: 200.0 / 3},
		"nosuch: -100.00": {Path: "nosuch", Quality: Sentinel},
	}
	for want, r := range tests {
		if got := FormatResult(r); got != want {
			t.Errorf("FormatResult = %q, want %q", got, want)
		}
	}
}

func TestReadPaths(t *testing.T) {
	got, err := ReadPaths(strings.NewReader("json\n\n  os.path \n# comment\nre\n"))
	if err != nil {
		t.Fatalf("ReadPaths: %v", err)
	}
	if diff := cmp.Diff([]string{"json", "os.path", "re"}, got); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}
