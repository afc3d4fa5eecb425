package gitdiff

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"filediff/internal/edits"
)

// ChangeType represents the type of change
type ChangeType int

const (
	Modified ChangeType = iota
	Added
	Deleted
	Renamed
	Copied
	Rewrite
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "ADDED"
	case Deleted:
		return "DELETED"
	case Renamed:
		return "RENAMED"
	case Copied:
		return "COPIED"
	case Rewrite:
		return "REWRITE"
	default:
		return "MODIFIED"
	}
}

// PatchType tells how the content change is described.
type PatchType int

const (
	PatchNone PatchType = iota
	PatchUnified
	PatchBinary
)

func (p PatchType) String() string {
	switch p {
	case PatchUnified:
		return "UNIFIED"
	case PatchBinary:
		return "BINARY"
	default:
		return "NONE"
	}
}

// FileDiff is the diff of one file between two trees. OldPath is empty for
// added files and NewPath for deleted ones; the modes follow the same rule.
// A Negative diff stands for a computation that did not finish in time.
type FileDiff struct {
	ChangeType  ChangeType
	OldPath     string
	NewPath     string
	OldMode     filemode.FileMode
	NewMode     filemode.FileMode
	OldID       plumbing.Hash
	NewID       plumbing.Hash
	Edits       []edits.Edit
	HeaderLines []string
	PatchType   PatchType
	Negative    bool
}

// IsEmpty reports whether the diff carries neither a header nor edits, as is
// the case for a file that did not change.
func (d FileDiff) IsEmpty() bool {
	return len(d.HeaderLines) == 0 && len(d.Edits) == 0
}

// FileEdits returns the edits together with the paths they apply to.
func (d FileDiff) FileEdits() edits.FileEdits {
	return edits.FileEdits{Edits: d.Edits, OldPath: d.OldPath, NewPath: d.NewPath}
}

func negative(path string) FileDiff {
	return FileDiff{NewPath: path, Negative: true}
}
