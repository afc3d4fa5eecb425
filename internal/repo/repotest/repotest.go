// Package repotest builds small in-memory repositories for tests.
package repotest

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// File is a file to commit. A zero Mode means a regular file.
type File struct {
	Path    string
	Content string
	Mode    filemode.FileMode
}

// Repo is an in-memory repository with a deterministic clock.
type Repo struct {
	t          testing.TB
	Storage    *memory.Storage
	Repository *git.Repository
	clock      time.Time
}

// New returns an empty bare repository.
func New(t testing.TB) *Repo {
	t.Helper()
	storage := memory.NewStorage()
	r, err := git.Init(storage, nil)
	if err != nil {
		t.Fatalf("git.Init() error = %v", err)
	}
	return &Repo{
		t:          t,
		Storage:    storage,
		Repository: r,
		clock:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit commits regular files given as path to content.
func (r *Repo) Commit(files map[string]string, message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	list := make([]File, 0, len(files))
	for path, content := range files {
		list = append(list, File{Path: path, Content: content})
	}
	return r.CommitFiles(list, message, parents...)
}

// CommitFiles commits files with the given parents and returns the commit id.
func (r *Repo) CommitFiles(files []File, message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	root := newDir()
	for _, f := range files {
		mode := f.Mode
		if mode == filemode.Empty {
			mode = filemode.Regular
		}
		root.add(strings.Split(f.Path, "/"), mode, r.storeBlob([]byte(f.Content)))
	}
	treeID := r.storeTree(root)

	r.clock = r.clock.Add(time.Minute)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: r.clock}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeID,
		ParentHashes: parents,
	}
	obj := r.Storage.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		r.t.Fatalf("commit.Encode() error = %v", err)
	}
	return r.store(obj)
}

// TreeOf returns the tree id of a commit.
func (r *Repo) TreeOf(commitID plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	c, err := r.Repository.CommitObject(commitID)
	if err != nil {
		r.t.Fatalf("CommitObject(%s) error = %v", commitID, err)
	}
	return c.TreeHash
}

func (r *Repo) storeBlob(content []byte) plumbing.Hash {
	r.t.Helper()
	obj := r.Storage.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		r.t.Fatalf("obj.Writer() error = %v", err)
	}
	if _, err := w.Write(content); err != nil {
		r.t.Fatalf("blob write error = %v", err)
	}
	if err := w.Close(); err != nil {
		r.t.Fatalf("blob close error = %v", err)
	}
	return r.store(obj)
}

func (r *Repo) storeTree(d *dir) plumbing.Hash {
	r.t.Helper()
	tree := &object.Tree{}
	for name, sub := range d.dirs {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: r.storeTree(sub)})
	}
	for name, f := range d.files {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: f.mode, Hash: f.hash})
	}
	sort.Slice(tree.Entries, func(i, j int) bool {
		return sortName(tree.Entries[i]) < sortName(tree.Entries[j])
	})

	obj := r.Storage.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		r.t.Fatalf("tree.Encode() error = %v", err)
	}
	return r.store(obj)
}

func (r *Repo) store(obj plumbing.EncodedObject) plumbing.Hash {
	r.t.Helper()
	h, err := r.Storage.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("SetEncodedObject() error = %v", err)
	}
	return h
}

// Git orders directories as if their name ended with a slash.
func sortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

type blobEntry struct {
	mode filemode.FileMode
	hash plumbing.Hash
}

type dir struct {
	dirs  map[string]*dir
	files map[string]blobEntry
}

func newDir() *dir {
	return &dir{dirs: make(map[string]*dir), files: make(map[string]blobEntry)}
}

func (d *dir) add(parts []string, mode filemode.FileMode, hash plumbing.Hash) {
	if len(parts) == 1 {
		d.files[parts[0]] = blobEntry{mode: mode, hash: hash}
		return
	}
	sub, ok := d.dirs[parts[0]]
	if !ok {
		sub = newDir()
		d.dirs[parts[0]] = sub
	}
	sub.add(parts[1:], mode, hash)
}
