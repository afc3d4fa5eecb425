package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newGitDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "refs", "heads"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return dir
}

func startWatcher(t *testing.T, gitDir string) *Watcher {
	t.Helper()
	w, err := New(gitDir, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWaitReportsRefUpdate(t *testing.T) {
	gitDir := newGitDir(t)
	w := startWatcher(t, gitDir)

	ref := filepath.Join(gitDir, "refs", "heads", "main")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(ref, []byte("1111111111111111111111111111111111111111\n"), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event, err := w.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if event.Path != ref {
		t.Errorf("Wait() path = %q, want %q", event.Path, ref)
	}
}

func TestWaitIgnoresUnrelatedFiles(t *testing.T) {
	gitDir := newGitDir(t)
	w := startWatcher(t, gitDir)

	if err := os.WriteFile(filepath.Join(gitDir, "index"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := w.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestWaitAfterClose(t *testing.T) {
	w := startWatcher(t, newGitDir(t))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := w.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait() error = %v, want ErrClosed", err)
	}
}

func TestGitDir(t *testing.T) {
	bare := t.TempDir()
	if got := GitDir(bare); got != bare {
		t.Errorf("GitDir(bare) = %q, want %q", got, bare)
	}

	work := t.TempDir()
	if err := os.Mkdir(filepath.Join(work, ".git"), 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	if got, want := GitDir(work), filepath.Join(work, ".git"); got != want {
		t.Errorf("GitDir(work tree) = %q, want %q", got, want)
	}
}
