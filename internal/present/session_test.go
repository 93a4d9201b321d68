package present

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"
)

type answers map[string]string

func (a answers) Answer(p string) (string, bool) {
	v, ok := a[p]
	return v, ok
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSessionShowsPromptsInOrder(t *testing.T) {
	cards := answers{"m.f(x)": "Does f.", "m.g()": "Does g."}
	var out strings.Builder
	s := NewSession(cards, Once(slices.Values([]string{"m.f(x)", "m.g()"})), strings.NewReader("\n\n\n\n"), &out, discard())

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "\n\n\n\nm.f(x)------\nDoes f." + "\n\n\n\nm.g()-----\nDoes g."
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSessionStopsAtEOF(t *testing.T) {
	cards := answers{"a()": "A."}
	var out strings.Builder
	s := NewSession(cards, NewCycler(slices.Values([]string{"a()"}), false, newRand()), strings.NewReader("\n\n\n"), &out, discard())

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Count(out.String(), "a()"); got != 2 {
		t.Errorf("prompt shown %d times, want 2", got)
	}
}

func TestSessionCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	cards := answers{"a()": "A."}
	s := NewSession(cards, NewCycler(slices.Values([]string{"a()"}), false, newRand()), pr, io.Discard, discard())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	if _, err := pw.Write([]byte("\n\n\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
