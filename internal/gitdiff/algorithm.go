package gitdiff

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"filediff/internal/edits"
)

// binarySniffSize is how much of a file is searched for NUL bytes.
const binarySniffSize = 8000

// noNewlineMarker is appended, for comparison only, to a last line that has
// no terminating newline.
const noNewlineMarker = "\x00"

// ComputeEdits diffs two line slices. Lines are compared after whitespace
// normalisation; the edits index the original slices.
func ComputeEdits(algorithm Algorithm, ws Whitespace, oldLines, newLines []string) []edits.Edit {
	return diffLines(algorithm, normalizeLines(ws, oldLines), normalizeLines(ws, newLines))
}

// ComputeContentEdits diffs two texts line by line. Unless whitespace is
// ignored, a last line without a newline differs from the same line with
// one, so adding or removing only the final newline edits that line.
func ComputeContentEdits(algorithm Algorithm, ws Whitespace, oldContent, newContent string) []edits.Edit {
	a := normalizeLines(ws, splitLines(oldContent))
	b := normalizeLines(ws, splitLines(newContent))
	if ws == IgnoreNone {
		a = markMissingNewline(a, oldContent)
		b = markMissingNewline(b, newContent)
	}
	return diffLines(algorithm, a, b)
}

func markMissingNewline(lines []string, content string) []string {
	if len(lines) == 0 || strings.HasSuffix(content, "\n") {
		return lines
	}
	marked := make([]string, len(lines))
	copy(marked, lines)
	marked[len(marked)-1] += noNewlineMarker
	return marked
}

func diffLines(algorithm Algorithm, a, b []string) []edits.Edit {
	switch algorithm {
	case Myers:
		return myersEdits(a, b)
	default:
		return matcherEdits(a, b)
	}
}

func normalizeLines(ws Whitespace, lines []string) []string {
	if ws == IgnoreNone {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = ws.normalize(line)
	}
	return out
}

func matcherEdits(a, b []string) []edits.Edit {
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	var result []edits.Edit
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		result = append(result, edits.Edit{BeginA: op.I1, EndA: op.I2, BeginB: op.J1, EndB: op.J2})
	}
	return result
}

func myersEdits(a, b []string) []edits.Edit {
	dmp := diffmatchpatch.New()
	// Every line is encoded as one rune.
	aRunes, bRunes, _ := dmp.DiffLinesToRunes(joinLines(a), joinLines(b))
	diffs := dmp.DiffMainRunes(aRunes, bRunes, false)

	var result []edits.Edit
	var pending *edits.Edit
	lineA, lineB := 0, 0
	flush := func() {
		if pending != nil {
			pending.EndA, pending.EndB = lineA, lineB
			result = append(result, *pending)
			pending = nil
		}
	}

	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}
		if d.Type == diffmatchpatch.DiffEqual {
			flush()
			lineA += n
			lineB += n
			continue
		}
		if pending == nil {
			pending = &edits.Edit{BeginA: lineA, BeginB: lineB}
		}
		if d.Type == diffmatchpatch.DiffDelete {
			lineA += n
		} else {
			lineB += n
		}
	}
	flush()
	return result
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// splitLines splits content by newline and normalizes the result
// It removes the trailing empty string that results from splitting text with a trailing newline
// For example: "a\nb\n" -> ["a", "b"] instead of ["a", "b", ""]
// "a\nb" gives the same lines; ComputeContentEdits tells the two apart.
func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}

	lines := strings.Split(content, "\n")

	// Remove trailing empty string if present (from trailing newline)
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// SplitLines splits text into lines without their terminators.
func SplitLines(content string) []string {
	return splitLines(content)
}

func isBinary(content []byte) bool {
	sample := content
	if len(sample) > binarySniffSize {
		sample = sample[:binarySniffSize]
	}
	return bytes.IndexByte(sample, 0) >= 0
}
