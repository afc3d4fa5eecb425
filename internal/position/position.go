// Package position transforms positions (file path plus optional line range)
// from one tree to another given mappings between the trees.
//
// The package knows nothing about git or diffs. A Mapping states that a
// source region of a file corresponds to a target region, possibly in a file
// with a different path. An entity whose range is fully contained in a source
// region is moved to the same offset within the target region. An entity that
// overlaps a region without being contained in it, or that lies in a mapped
// file but in no region at all, cannot be represented faithfully and is
// handed to the ConflictStrategy. Entities in files without mappings pass
// through untouched.
package position

import "fmt"

// Range is a closed-open line range [Start, End).
type Range struct {
	Start int
	End   int
}

// NewRange returns the range [start, end).
func NewRange(start, end int) *Range {
	return &Range{Start: start, End: end}
}

// Len returns the number of lines covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty reports whether the range covers no lines.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// ShiftBy moves both ends of the range by amount.
func (r Range) ShiftBy(amount int) Range {
	return Range{Start: r.Start + amount, End: r.End + amount}
}

// Contains reports whether other lies within r. An empty range contains
// itself and is contained in any range it touches.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges share at least one line. Empty
// ranges overlap a range when they sit strictly inside it.
func (r Range) Overlaps(other Range) bool {
	if r.IsEmpty() && other.IsEmpty() {
		return r.Start == other.Start
	}
	if r.IsEmpty() {
		return other.Start < r.Start && r.Start < other.End
	}
	if other.IsEmpty() {
		return r.Start < other.Start && other.Start < r.End
	}
	return r.Start < other.End && other.Start < r.End
}

// Conflicts reports whether the ranges overlap while neither contains the
// other.
func (r Range) Conflicts(other Range) bool {
	return r.Overlaps(other) && !r.Contains(other) && !other.Contains(r)
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Position is a location within a tree. An empty FilePath means the position
// refers to no file; a nil LineRange means the whole file.
type Position struct {
	FilePath  string
	LineRange *Range
}

// HasFile reports whether the position refers to a file.
func (p Position) HasFile() bool {
	return p.FilePath != ""
}

// WithFilePath returns a copy of p referring to filePath.
func (p Position) WithFilePath(filePath string) Position {
	return Position{FilePath: filePath, LineRange: p.LineRange}
}

// WithoutLineRange returns a copy of p which refers to the whole file.
func (p Position) WithoutLineRange() Position {
	return Position{FilePath: p.FilePath}
}

// ShiftBy returns a copy of p whose range is moved by amount.
func (p Position) ShiftBy(amount int) Position {
	if p.LineRange == nil {
		return p
	}
	shifted := p.LineRange.ShiftBy(amount)
	return Position{FilePath: p.FilePath, LineRange: &shifted}
}

// Equal compares two positions by value.
func (p Position) Equal(other Position) bool {
	if p.FilePath != other.FilePath {
		return false
	}
	if p.LineRange == nil || other.LineRange == nil {
		return p.LineRange == nil && other.LineRange == nil
	}
	return *p.LineRange == *other.LineRange
}

func (p Position) String() string {
	if p.LineRange == nil {
		return fmt.Sprintf("%q", p.FilePath)
	}
	return fmt.Sprintf("%q%s", p.FilePath, p.LineRange)
}
