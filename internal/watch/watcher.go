// Package watch reports when the refs of a repository move.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce merges bursts of ref updates, such as a fetch touching
// many branches, into one event.
const DefaultDebounce = 50 * time.Millisecond

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("watcher closed")

// Event reports a ref change. Path is the first file that changed.
type Event struct {
	Time time.Time
	Path string
}

// Watcher watches HEAD, packed-refs and the refs directory of a repository.
type Watcher struct {
	watcher  *fsnotify.Watcher
	gitDir   string
	debounce time.Duration
}

// GitDir returns the directory holding the refs of the repository at path:
// path/.git for a work tree, path itself for a bare repository.
func GitDir(path string) string {
	dotGit := filepath.Join(path, ".git")
	if info, err := os.Stat(dotGit); err == nil && info.IsDir() {
		return dotGit
	}
	return path
}

// New starts watching gitDir.
func New(gitDir string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{watcher: fsWatcher, gitDir: gitDir, debounce: debounce}

	// HEAD and packed-refs are replaced through lock files, so their
	// directory is watched rather than the files.
	if err := fsWatcher.Add(gitDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if err := w.addRecursiveDirs(filepath.Join(gitDir, "refs")); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Wait blocks until a ref changes, then waits for the debounce interval to
// pass without further changes.
func (w *Watcher) Wait(ctx context.Context) (Event, error) {
	var (
		pending *Event
		timer   <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return Event{}, ErrClosed
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursiveDirs(event.Name)
				}
			}
			if pending == nil {
				pending = &Event{Time: time.Now(), Path: event.Name}
			}
			timer = time.After(w.debounce)
		case <-timer:
			return *pending, nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return Event{}, ErrClosed
			}
			return Event{}, err
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Dir(event.Name) != w.gitDir {
		return true
	}
	switch filepath.Base(event.Name) {
	case "HEAD", "packed-refs", "refs":
		return true
	default:
		return false
	}
}

func (w *Watcher) addRecursiveDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}
