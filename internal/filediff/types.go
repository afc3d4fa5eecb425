// Package filediff computes and caches the diff of a file between two
// commits, and marks the edits that only exist because the change was
// rebased.
//
// A request names two commits. When both have a first parent and neither is
// an ancestor of the other, four diffs are loaded: the main diff between the
// commits, each commit against its parent, and the two parents against each
// other. Edits between the parents are moved through the two parent diffs
// into the coordinates of the main diff; main edits that match one of them
// exactly are due to the rebase.
package filediff

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"filediff/internal/edits"
	"filediff/internal/gitdiff"
)

// Paths of the synthetic files holding the commit message and the list of
// merged commits.
const (
	CommitMsgPath = "/COMMIT_MSG"
	MergeListPath = "/MERGE_LIST"
)

// AutoMergeMarker starts the message of commits created as auto-merges.
const AutoMergeMarker = "Auto-merge of "

// IsMagicPath reports whether path names a synthetic file.
func IsMagicPath(path string) bool {
	return path == CommitMsgPath || path == MergeListPath
}

// Key identifies one requested file diff. A zero OldCommit compares against
// the empty tree.
type Key struct {
	Project     string
	OldCommit   plumbing.Hash
	NewCommit   plumbing.Hash
	NewFilePath string
	RenameScore int
	Algorithm   gitdiff.Algorithm
	Whitespace  gitdiff.Whitespace
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s..%s:%s", k.Project, k.OldCommit, k.NewCommit, k.NewFilePath)
}

// Weight approximates the memory held by the key.
func (k Key) Weight() int64 {
	const fixed = 2*len(plumbing.ZeroHash) + 4 + 4 + 4
	return int64(len(k.Project) + len(k.NewFilePath) + fixed)
}

// AugmentedKey carries what the loader learned about the ancestry of a key.
// The parents are only set when IgnoreRebase is false.
type AugmentedKey struct {
	Key
	OldParent    plumbing.Hash
	NewParent    plumbing.Hash
	IgnoreRebase bool
}

// AllFileDiffs bundles the diffs needed to classify the edits of one key.
// The three parent diffs are nil when rebase detection does not apply or
// when the diff was empty.
type AllFileDiffs struct {
	Key            AugmentedKey
	Main           gitdiff.FileDiff
	OldVsParent    *gitdiff.FileDiff
	NewVsParent    *gitdiff.FileDiff
	ParentVsParent *gitdiff.FileDiff
}

// ComparisonKind says what the old commit of a key is to the new commit.
type ComparisonKind int

const (
	OtherPatchSet ComparisonKind = iota
	Root
	Parent
	AutoMerge
)

// ComparisonType classifies a key. ParentNum is 1-based and only set for
// Parent.
type ComparisonType struct {
	Kind      ComparisonKind
	ParentNum int
}

func AgainstRoot() ComparisonType          { return ComparisonType{Kind: Root} }
func AgainstParent(n int) ComparisonType   { return ComparisonType{Kind: Parent, ParentNum: n} }
func AgainstAutoMerge() ComparisonType     { return ComparisonType{Kind: AutoMerge} }
func AgainstOtherPatchSet() ComparisonType { return ComparisonType{Kind: OtherPatchSet} }

func (c ComparisonType) IsAgainstParent() bool    { return c.Kind == Parent }
func (c ComparisonType) IsAgainstAutoMerge() bool { return c.Kind == AutoMerge }
func (c ComparisonType) IsAgainstRoot() bool      { return c.Kind == Root }

// IsAgainstParentOrAutoMerge reports whether the old side is derived from
// the new commit itself rather than being another patch set.
func (c ComparisonType) IsAgainstParentOrAutoMerge() bool {
	return c.Kind == Parent || c.Kind == AutoMerge
}

func (c ComparisonType) String() string {
	switch c.Kind {
	case Root:
		return "AGAINST_ROOT"
	case Parent:
		return fmt.Sprintf("AGAINST_PARENT(%d)", c.ParentNum)
	case AutoMerge:
		return "AGAINST_AUTO_MERGE"
	default:
		return "AGAINST_OTHER_PATCHSET"
	}
}

// TaggedEdit is an edit of the main diff.
type TaggedEdit struct {
	Edit        edits.Edit
	DueToRebase bool
}

// FileDiffOutput is the cached result for one Key. Empty paths and modes
// mean the side does not exist, PatchNone means no patch type.
type FileDiffOutput struct {
	OldCommit      plumbing.Hash
	NewCommit      plumbing.Hash
	ComparisonType ComparisonType
	OldPath        string
	NewPath        string
	OldMode        filemode.FileMode
	NewMode        filemode.FileMode
	ChangeType     gitdiff.ChangeType
	PatchType      gitdiff.PatchType
	HeaderLines    []string
	Edits          []TaggedEdit
	Size           int64
	SizeDelta      int64
	Negative       bool
}

// emptyOutput is the result for a file that did not change.
func emptyOutput(key Key, ct ComparisonType) FileDiffOutput {
	return FileDiffOutput{
		OldCommit:      key.OldCommit,
		NewCommit:      key.NewCommit,
		ComparisonType: ct,
		NewPath:        key.NewFilePath,
	}
}

// negativeOutput is the result for a diff that timed out.
func negativeOutput(key Key, ct ComparisonType) FileDiffOutput {
	out := emptyOutput(key, ct)
	out.Negative = true
	return out
}

// IsEmpty reports whether the output has neither header lines nor edits.
func (o FileDiffOutput) IsEmpty() bool {
	return len(o.HeaderLines) == 0 && len(o.Edits) == 0
}

// Insertions counts the added lines.
func (o FileDiffOutput) Insertions() int {
	n := 0
	for _, e := range o.Edits {
		n += e.Edit.LenB()
	}
	return n
}

// Deletions counts the removed lines.
func (o FileDiffOutput) Deletions() int {
	n := 0
	for _, e := range o.Edits {
		n += e.Edit.LenA()
	}
	return n
}

// RebaseEdits returns the edits that are due to the rebase.
func (o FileDiffOutput) RebaseEdits() []edits.Edit {
	var out []edits.Edit
	for _, e := range o.Edits {
		if e.DueToRebase {
			out = append(out, e.Edit)
		}
	}
	return out
}

// Weight approximates the memory held by the output.
func (o FileDiffOutput) Weight() int64 {
	const (
		fixed   = 2*len(plumbing.ZeroHash) + 4*6
		perEdit = 4*4 + 1
	)
	w := int64(fixed + len(o.OldPath) + len(o.NewPath) + perEdit*len(o.Edits))
	for _, line := range o.HeaderLines {
		w += int64(len(line))
	}
	return w
}
