// Package gitdiff computes the diff of a single file between two trees.
package gitdiff

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// RenameDetectionDisabled turns off rename detection when used as score.
const RenameDetectionDisabled = -1

// Key identifies one file diff between two trees.
type Key struct {
	Project     string
	OldTree     plumbing.Hash
	NewTree     plumbing.Hash
	NewFilePath string
	RenameScore int
	Algorithm   Algorithm
	Whitespace  Whitespace
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s..%s:%s", k.Project, k.OldTree, k.NewTree, k.NewFilePath)
}

// Algorithm selects the line diff implementation.
type Algorithm int

const (
	// Histogram is served by difflib's sequence matcher, which anchors on the
	// longest matching blocks.
	Histogram Algorithm = iota
	// Myers is served by diffmatchpatch in line mode.
	Myers
)

var algorithmNames = map[Algorithm]string{
	Histogram: "histogram",
	Myers:     "myers",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// ParseAlgorithm maps a name such as "myers" to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	for a, n := range algorithmNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return Histogram, fmt.Errorf("unknown diff algorithm %q", name)
}

// Whitespace selects which whitespace differences are ignored when lines are
// compared.
type Whitespace int

const (
	IgnoreNone Whitespace = iota
	IgnoreTrailing
	IgnoreLeadingAndTrailing
	IgnoreAll
)

var whitespaceNames = map[Whitespace]string{
	IgnoreNone:               "ignore-none",
	IgnoreTrailing:           "ignore-trailing",
	IgnoreLeadingAndTrailing: "ignore-leading-and-trailing",
	IgnoreAll:                "ignore-all",
}

func (w Whitespace) String() string {
	if name, ok := whitespaceNames[w]; ok {
		return name
	}
	return fmt.Sprintf("whitespace(%d)", int(w))
}

// ParseWhitespace maps a name such as "ignore-all" to a Whitespace. Names are
// case-insensitive and underscores are accepted in place of dashes.
func ParseWhitespace(name string) (Whitespace, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for w, n := range whitespaceNames {
		if n == normalized {
			return w, nil
		}
	}
	return IgnoreNone, fmt.Errorf("unknown whitespace mode %q", name)
}

// normalize returns the form of line that is compared under w.
func (w Whitespace) normalize(line string) string {
	switch w {
	case IgnoreTrailing:
		return strings.TrimRight(line, " \t\r\f\v")
	case IgnoreLeadingAndTrailing:
		return strings.Join(strings.Fields(line), " ")
	case IgnoreAll:
		return strings.Join(strings.Fields(line), "")
	default:
		return line
	}
}
