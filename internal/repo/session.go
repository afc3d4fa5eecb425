package repo

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Session reads objects of one repository on behalf of one batch. Commits
// and tree ids are memoised for the lifetime of the session. A Session is not
// safe for concurrent use; callers must Close it when the batch is done.
type Session struct {
	project string
	repo    *git.Repository
	commits map[plumbing.Hash]*object.Commit
	closed  bool
}

// NewSession returns a Session reading from r.
func NewSession(project string, r *git.Repository) *Session {
	return &Session{
		project: project,
		repo:    r,
		commits: make(map[plumbing.Hash]*object.Commit),
	}
}

// Project returns the name the session was opened for.
func (s *Session) Project() string {
	return s.project
}

// Repository exposes the underlying repository.
func (s *Session) Repository() *git.Repository {
	return s.repo
}

// Close releases the memoised objects.
func (s *Session) Close() error {
	s.closed = true
	s.commits = nil
	return nil
}

// Commit loads a commit.
func (s *Session) Commit(id plumbing.Hash) (*object.Commit, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if c, ok := s.commits[id]; ok {
		return c, nil
	}
	c, err := s.repo.CommitObject(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", id, err)
	}
	s.commits[id] = c
	return c, nil
}

// TreeID resolves a commit to its tree. The zero commit resolves to
// EmptyTreeHash.
func (s *Session) TreeID(commitID plumbing.Hash) (plumbing.Hash, error) {
	if commitID.IsZero() {
		return EmptyTreeHash, nil
	}
	c, err := s.Commit(commitID)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return c.TreeHash, nil
}

// Tree loads a tree. EmptyTreeHash yields nil, which go-git treats as an
// empty tree, because the object is usually absent from the object store.
func (s *Session) Tree(treeID plumbing.Hash) (*object.Tree, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if treeID == EmptyTreeHash {
		return nil, nil
	}
	t, err := s.repo.TreeObject(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree %s: %w", treeID, err)
	}
	return t, nil
}

// FirstParent returns the first parent of a commit.
func (s *Session) FirstParent(commitID plumbing.Hash) (plumbing.Hash, error) {
	c, err := s.Commit(commitID)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if c.NumParents() == 0 {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrNoParent, commitID)
	}
	return c.ParentHashes[0], nil
}

// AreDirectlyRelated reports whether one commit is an ancestor of the other.
func (s *Session) AreDirectlyRelated(a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	ca, err := s.Commit(a)
	if err != nil {
		return false, err
	}
	cb, err := s.Commit(b)
	if err != nil {
		return false, err
	}

	related, err := ca.IsAncestor(cb)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry of %s and %s: %w", a, b, err)
	}
	if related {
		return true, nil
	}
	related, err = cb.IsAncestor(ca)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry of %s and %s: %w", b, a, err)
	}
	return related, nil
}

// BlobSize returns the size of the blob at path in treeID. blobID is used
// when it is known; otherwise the path is looked up in the tree, which is
// considerably slower.
func (s *Session) BlobSize(treeID plumbing.Hash, path string, blobID plumbing.Hash) (int64, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	if !blobID.IsZero() {
		size, err := s.repo.Storer.EncodedObjectSize(blobID)
		if err == nil {
			return size, nil
		}
	}

	tree, err := s.Tree(treeID)
	if err != nil {
		return 0, err
	}
	if tree == nil {
		return 0, fmt.Errorf("failed to find %s: %w", path, object.ErrFileNotFound)
	}
	f, err := tree.File(path)
	if err != nil {
		return 0, fmt.Errorf("failed to find %s in tree %s: %w", path, treeID, err)
	}
	return f.Size, nil
}

// MergedCommits lists the commits a merge brings in: those reachable from
// any parent but the first and not from the merge base with the first
// parent. Non-merge commits yield nothing.
func (s *Session) MergedCommits(mergeID plumbing.Hash) ([]*object.Commit, error) {
	merge, err := s.Commit(mergeID)
	if err != nil {
		return nil, err
	}
	if merge.NumParents() < 2 {
		return nil, nil
	}

	first, err := s.Commit(merge.ParentHashes[0])
	if err != nil {
		return nil, err
	}

	var result []*object.Commit
	seen := make(map[plumbing.Hash]bool)
	for _, parentID := range merge.ParentHashes[1:] {
		parent, err := s.Commit(parentID)
		if err != nil {
			return nil, err
		}
		bases, err := parent.MergeBase(first)
		if err != nil {
			return nil, fmt.Errorf("failed to find merge base of %s: %w", parentID, err)
		}
		ignore := make([]plumbing.Hash, 0, len(bases))
		for _, b := range bases {
			ignore = append(ignore, b.Hash)
		}

		iter := object.NewCommitPreorderIter(parent, nil, ignore)
		err = iter.ForEach(func(c *object.Commit) error {
			if !seen[c.Hash] {
				seen[c.Hash] = true
				result = append(result, c)
			}
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to walk merged commits: %w", err)
		}
	}
	return result, nil
}

// ReadBlob returns the content of a blob.
func (s *Session) ReadBlob(id plumbing.Hash) ([]byte, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	blob, err := s.repo.BlobObject(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %s: %w", id, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
