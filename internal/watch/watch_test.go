package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New()
	if err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	go w.Run()
	return w
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTrackedRemovalReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracked.txt")
	writeFile(t, path)

	w := newTestWatcher(t)
	if err := w.Track(path); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Removals:
		if got != path {
			t.Fatalf("removal = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for removal")
	}
}

func TestUntrackedRemovalIgnored(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "tracked.txt")
	other := filepath.Join(dir, "other.txt")
	writeFile(t, tracked)
	writeFile(t, other)

	w := newTestWatcher(t)
	if err := w.Track(tracked); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(other); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(tracked); err != nil {
		t.Fatal(err)
	}

	// only the tracked path comes through
	select {
	case got := <-w.Removals:
		if got != tracked {
			t.Fatalf("removal = %q, want %q", got, tracked)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for removal")
	}
}

func TestForgetStopsReports(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracked.txt")
	writeFile(t, path)

	w := newTestWatcher(t)
	if err := w.Track(path); err != nil {
		t.Fatal(err)
	}
	w.Forget(path)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Removals:
		t.Fatalf("unexpected removal %q after Forget", got)
	case <-time.After(500 * time.Millisecond):
	}
}
