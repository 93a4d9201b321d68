package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) record(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
}

func (r *recorder) files() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string)
	for _, b := range r.batches {
		for _, c := range b {
			out[c.File] = c.Op
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func start(t *testing.T, opts Options) *recorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Watch(ctx, opts, quietLogger(), rec.record); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestWatchReportsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, Options{Roots: []string{dir}, Exts: []string{".py"}, Debounce: 50 * time.Millisecond})

	_ = os.WriteFile(filepath.Join(dir, "calc.py"), []byte("def add(a, b): pass\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	target := filepath.Join(dir, "calc.py")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := rec.files()[target]
		return ok
	}, "change to calc.py not reported")

	if _, ok := rec.files()[filepath.Join(dir, "notes.txt")]; ok {
		t.Error("file with unwatched extension reported")
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, Options{Roots: []string{dir}, Debounce: 300 * time.Millisecond})

	file := filepath.Join(dir, "calc.py")
	for i := range 5 {
		_ = os.WriteFile(file, []byte{byte('a' + i)}, 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.count() > 0
	}, "burst never settled")
	time.Sleep(400 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("callbacks = %d, want 1 for one burst", n)
	}
}

func TestWatchNewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, Options{Roots: []string{dir}, Exts: []string{".py"}, Debounce: 50 * time.Millisecond})

	sub := filepath.Join(dir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "mod.py"), []byte("x = 1\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := rec.files()[filepath.Join(sub, "mod.py")]
		return ok
	}, "file in new directory not reported")
}

func TestWatchRemove(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "calc.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := start(t, Options{Roots: []string{dir}, Debounce: 50 * time.Millisecond})

	_ = os.Remove(file)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.files()[file] == OpRemove
	}, "removal not reported")
}

func TestOpName(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, OpCreate},
		{fsnotify.Write, OpWrite},
		{fsnotify.Create | fsnotify.Write, OpCreate},
		{fsnotify.Remove, OpRemove},
		{fsnotify.Rename, OpRename},
		{fsnotify.Chmod, ""},
	}
	for _, tt := range tests {
		if got := opName(tt.op); got != tt.want {
			t.Errorf("opName(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestSkipDir(t *testing.T) {
	for _, name := range []string{".git", "__pycache__", "testdata", "vendor"} {
		if !skipDir(name) {
			t.Errorf("skipDir(%q) = false", name)
		}
	}
	if skipDir("pkg") {
		t.Error("skipDir(pkg) = true")
	}
}
