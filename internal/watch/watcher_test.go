package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logAdapter "github.com/bft-labs/pillship/internal/adapters/log"
)

const testDelay = 50 * time.Millisecond

func startWatcher(t *testing.T, path string) (*Watcher, <-chan error) {
	t.Helper()
	w := New(path, testDelay, logAdapter.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return w, errCh
}

// waitSignal rewrites path until the watcher reports it, since the watch is
// set up asynchronously.
func waitSignal(t *testing.T, w *Watcher, path string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(4 * testDelay)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case <-w.Changes():
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no change signal")
		}
	}
}

func drain(w *Watcher) {
	for {
		select {
		case <-w.Changes():
		case <-time.After(5 * testDelay):
			return
		}
	}
}

func TestWatcher_SignalsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	w, _ := startWatcher(t, path)
	waitSignal(t, w, path)
}

func TestWatcher_SignalsRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	w, _ := startWatcher(t, path)
	waitSignal(t, w, path)
	drain(w)

	tmp := filepath.Join(dir, "data.json.tmp")
	if err := os.WriteFile(tmp, []byte(`[{"tube":"t1"}]`), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("rename over the schedule file not signalled")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	w, _ := startWatcher(t, path)
	waitSignal(t, w, path)
	drain(w)

	if err := os.WriteFile(filepath.Join(dir, "status.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-w.Changes():
		t.Error("unexpected signal for another file")
	case <-time.After(10 * testDelay):
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	w, _ := startWatcher(t, path)
	waitSignal(t, w, path)
	drain(w)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("burst not signalled")
	}
	select {
	case <-w.Changes():
		t.Error("burst signalled more than once")
	case <-time.After(10 * testDelay):
	}
}

func TestWatcher_RunFailsForMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "data.json"), testDelay, logAdapter.NewNoopLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil, want error for missing directory")
	}
}

func TestNew_DefaultDelay(t *testing.T) {
	w := New("/sd/data.json", 0, logAdapter.NewNoopLogger())
	if w.delay != DefaultDebounce {
		t.Errorf("delay = %v, want %v", w.delay, DefaultDebounce)
	}
	if w.dir != "/sd" || w.name != "data.json" {
		t.Errorf("dir/name = %s/%s, want /sd/data.json", w.dir, w.name)
	}
}
