// Package render prints file diff outputs to a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"filediff/internal/filediff"
)

// DefaultContext is the number of unchanged lines shown around each edit.
const DefaultContext = 3

// File is a diff output together with the content it was computed from.
// Without content only the header and hunk ranges are printed.
type File struct {
	Output   filediff.FileDiffOutput
	OldLines []string
	NewLines []string
}

// Renderer writes unified diffs in which rebase edits are marked.
type Renderer struct {
	Context     int
	Highlighter *SyntaxHighlighter
	// HideRebase leaves edits due to the rebase out of the output.
	HideRebase bool
}

// NewRenderer returns a Renderer with default context and highlighting.
func NewRenderer() *Renderer {
	return &Renderer{
		Context:     DefaultContext,
		Highlighter: NewSyntaxHighlighter("monokai"),
	}
}

// Render writes f to w.
func (r *Renderer) Render(w io.Writer, f File) error {
	var b strings.Builder
	out := f.Output

	b.WriteString(fileHeaderStyle.Render(Summary(out)))
	b.WriteString("\n")
	for _, line := range out.HeaderLines {
		b.WriteString(headerLineStyle.Render(line))
		b.WriteString("\n")
	}

	switch {
	case out.Negative:
		b.WriteString(infoStyle.Render("diff timed out"))
		b.WriteString("\n")
	case len(out.Edits) == 0:
		b.WriteString(infoStyle.Render("no content changes"))
		b.WriteString("\n")
	}

	path := out.NewPath
	if path == "" {
		path = out.OldPath
	}
	for _, te := range out.Edits {
		if te.DueToRebase && r.HideRebase {
			continue
		}
		r.writeHunk(&b, f, te, path)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) writeHunk(b *strings.Builder, f File, te filediff.TaggedEdit, path string) {
	e := te.Edit
	ctx := r.Context
	if ctx < 0 {
		ctx = 0
	}
	if f.OldLines == nil && f.NewLines == nil {
		ctx = 0
	}
	before := min(ctx, e.BeginA, e.BeginB)
	afterA := clampedLen(f.OldLines, e.EndA, ctx)
	afterB := clampedLen(f.NewLines, e.EndB, ctx)
	after := min(afterA, afterB)

	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@",
		e.BeginA-before+1, e.LenA()+before+after,
		e.BeginB-before+1, e.LenB()+before+after)
	b.WriteString(hunkStyle.Render(header))
	if te.DueToRebase {
		b.WriteString(" ")
		b.WriteString(rebaseMarkerStyle.Render("[rebase]"))
	}
	b.WriteString("\n")

	if f.NewLines == nil && f.OldLines == nil {
		return
	}

	for _, line := range slice(f.NewLines, e.BeginB-before, e.BeginB) {
		r.writeLine(b, " ", line, path, contextStyle, contextStyle, false)
	}
	for _, line := range slice(f.OldLines, e.BeginA, e.EndA) {
		r.writeLine(b, "-", line, path, removedPrefixStyle, removedStyle, te.DueToRebase)
	}
	for _, line := range slice(f.NewLines, e.BeginB, e.EndB) {
		r.writeLine(b, "+", line, path, addedPrefixStyle, addedStyle, te.DueToRebase)
	}
	for _, line := range slice(f.NewLines, e.EndB, e.EndB+after) {
		r.writeLine(b, " ", line, path, contextStyle, contextStyle, false)
	}
}

func (r *Renderer) writeLine(b *strings.Builder, prefix, line, path string, prefixStyle, contentStyle lipgloss.Style, rebase bool) {
	b.WriteString(prefixStyle.Render(prefix))
	b.WriteString(" ")
	switch {
	case rebase:
		b.WriteString(rebaseLineStyle.Render(line))
	case prefix == " " || r.Highlighter == nil:
		b.WriteString(contentStyle.Render(line))
	default:
		b.WriteString(r.Highlighter.Highlight(line, path))
	}
	b.WriteString("\n")
}

// Summary returns a one-line description of out such as
// "M src/main.go +3 -1 (1 rebase edit)".
func Summary(out filediff.FileDiffOutput) string {
	var b strings.Builder
	b.WriteString(StatusStyle(out.ChangeType).Render(StatusSymbol(out.ChangeType)))
	b.WriteString(" ")
	switch {
	case out.OldPath != "" && out.NewPath != "" && out.OldPath != out.NewPath:
		fmt.Fprintf(&b, "%s -> %s", out.OldPath, out.NewPath)
	case out.NewPath != "":
		b.WriteString(out.NewPath)
	default:
		b.WriteString(out.OldPath)
	}
	b.WriteString(" ")
	b.WriteString(statsStyle.Render(fmt.Sprintf("+%d -%d", out.Insertions(), out.Deletions())))
	if n := len(out.RebaseEdits()); n > 0 {
		noun := "edits"
		if n == 1 {
			noun = "edit"
		}
		fmt.Fprintf(&b, " (%d rebase %s)", n, noun)
	}
	return b.String()
}

func clampedLen(lines []string, from, n int) int {
	if lines == nil {
		return 0
	}
	if rest := len(lines) - from; rest < n {
		return max(rest, 0)
	}
	return n
}

func slice(lines []string, from, to int) []string {
	from = max(from, 0)
	to = min(to, len(lines))
	if from >= to {
		return nil
	}
	return lines[from:to]
}
