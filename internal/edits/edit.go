// Package edits tracks line edits of a single file diff while they are moved
// from one pair of trees to another.
package edits

import "fmt"

// Edit is a replaced region: lines [BeginA, EndA) of the old side became
// lines [BeginB, EndB) of the new side. BeginA == EndA is a pure insertion,
// BeginB == EndB a pure deletion.
type Edit struct {
	BeginA int
	EndA   int
	BeginB int
	EndB   int
}

// Kind classifies an edit.
type Kind int

const (
	KindEmpty Kind = iota
	KindInsert
	KindDelete
	KindReplace
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindDelete:
		return "DELETE"
	case KindReplace:
		return "REPLACE"
	default:
		return "EMPTY"
	}
}

// Kind reports what the edit does.
func (e Edit) Kind() Kind {
	switch {
	case e.BeginA == e.EndA && e.BeginB == e.EndB:
		return KindEmpty
	case e.BeginA == e.EndA:
		return KindInsert
	case e.BeginB == e.EndB:
		return KindDelete
	default:
		return KindReplace
	}
}

// LenA is the number of old lines covered by the edit.
func (e Edit) LenA() int {
	return e.EndA - e.BeginA
}

// LenB is the number of new lines covered by the edit.
func (e Edit) LenB() int {
	return e.EndB - e.BeginB
}

func (e Edit) String() string {
	return fmt.Sprintf("%s(%d-%d,%d-%d)", e.Kind(), e.BeginA, e.EndA, e.BeginB, e.EndB)
}

// FileEdits are the edits of one file diff. OldPath is empty for added files,
// NewPath for deleted ones.
type FileEdits struct {
	Edits   []Edit
	OldPath string
	NewPath string
}

// FileLevelPath stands in for a file path that got lost during a transform.
const FileLevelPath = "/PATCHSET_LEVEL"

const noLine = -1

// ContextAwareEdit is an Edit together with the paths it applies to. A
// placeholder, with all lines set to -1, represents a file diff without
// content edits such as a pure rename.
type ContextAwareEdit struct {
	OldPath        string
	NewPath        string
	BeginA         int
	EndA           int
	BeginB         int
	EndB           int
	ImplicitRename bool
}

// NewContextAwareEdit builds a ContextAwareEdit. An empty oldPath takes the
// value of newPath. implicitRename only holds when pathAdjusted is set and
// the two paths differ.
func NewContextAwareEdit(oldPath, newPath string, e Edit, pathAdjusted bool) ContextAwareEdit {
	if oldPath == "" {
		oldPath = newPath
	}
	return ContextAwareEdit{
		OldPath:        oldPath,
		NewPath:        newPath,
		BeginA:         e.BeginA,
		EndA:           e.EndA,
		BeginB:         e.BeginB,
		EndB:           e.EndB,
		ImplicitRename: pathAdjusted && oldPath != newPath,
	}
}

// NewPlaceholder returns the file-level edit for a diff without edits.
func NewPlaceholder(oldPath, newPath string) ContextAwareEdit {
	return NewContextAwareEdit(oldPath, newPath, Edit{BeginA: noLine, EndA: noLine, BeginB: noLine, EndB: noLine}, false)
}

// IsPlaceholder reports whether e carries no content edit.
func (e ContextAwareEdit) IsPlaceholder() bool {
	return e.BeginA == noLine && e.EndA == noLine && e.BeginB == noLine && e.EndB == noLine
}

// ToEdit strips the paths. Placeholders have no Edit.
func (e ContextAwareEdit) ToEdit() (Edit, bool) {
	if e.IsPlaceholder() {
		return Edit{}, false
	}
	return Edit{BeginA: e.BeginA, EndA: e.EndA, BeginB: e.BeginB, EndB: e.EndB}, true
}

// FilePath is the path the edit is grouped under: the new path when there is
// one, otherwise the old path.
func (e ContextAwareEdit) FilePath() string {
	if e.NewPath != "" {
		return e.NewPath
	}
	return e.OldPath
}
