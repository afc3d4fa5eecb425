package gitdiff

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

const (
	devNull      = "/dev/null"
	abbrevLength = 7
)

// Header describes the file-level part of a unified diff.
type Header struct {
	ChangeType ChangeType
	OldPath    string
	NewPath    string
	OldMode    filemode.FileMode
	NewMode    filemode.FileMode
	OldID      plumbing.Hash
	NewID      plumbing.Hash
	Binary     bool
}

// Lines renders the header the way git does for a single file.
func (h Header) Lines() []string {
	oldName, newName := h.OldPath, h.NewPath
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}

	lines := []string{fmt.Sprintf("diff --git a/%s b/%s", oldName, newName)}
	switch h.ChangeType {
	case Added:
		lines = append(lines, fmt.Sprintf("new file mode %s", modeString(h.NewMode)))
	case Deleted:
		lines = append(lines, fmt.Sprintf("deleted file mode %s", modeString(h.OldMode)))
	case Renamed:
		lines = append(lines, "rename from "+h.OldPath, "rename to "+h.NewPath)
	case Copied:
		lines = append(lines, "copy from "+h.OldPath, "copy to "+h.NewPath)
	}
	modeChanged := h.ChangeType != Added && h.ChangeType != Deleted && h.OldMode != h.NewMode
	if modeChanged {
		lines = append(lines,
			fmt.Sprintf("old mode %s", modeString(h.OldMode)),
			fmt.Sprintf("new mode %s", modeString(h.NewMode)))
	}

	if h.OldID == h.NewID {
		return lines
	}
	index := fmt.Sprintf("index %s..%s", Abbreviate(h.OldID), Abbreviate(h.NewID))
	if !modeChanged && h.ChangeType != Added && h.ChangeType != Deleted {
		index += " " + modeString(h.NewMode)
	}
	lines = append(lines, index)

	a, b := "a/"+oldName, "b/"+newName
	if h.ChangeType == Added {
		a = devNull
	}
	if h.ChangeType == Deleted {
		b = devNull
	}
	if h.Binary {
		return append(lines, fmt.Sprintf("Binary files %s and %s differ", a, b))
	}
	return append(lines, "--- "+a, "+++ "+b)
}

// Abbreviate shortens an object id the way git prints it in headers.
func Abbreviate(id plumbing.Hash) string {
	return id.String()[:abbrevLength]
}

func modeString(m filemode.FileMode) string {
	return fmt.Sprintf("%06o", uint32(m))
}
