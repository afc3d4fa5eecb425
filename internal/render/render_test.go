package render

import (
	"bytes"
	"strings"
	"testing"

	"filediff/internal/edits"
	"filediff/internal/filediff"
	"filediff/internal/gitdiff"
)

func sampleFile() File {
	return File{
		Output: filediff.FileDiffOutput{
			OldPath:     "f.txt",
			NewPath:     "f.txt",
			ChangeType:  gitdiff.Modified,
			HeaderLines: []string{"diff --git a/f.txt b/f.txt"},
			Edits: []filediff.TaggedEdit{
				{Edit: edits.Edit{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2}},
				{Edit: edits.Edit{BeginA: 4, EndA: 5, BeginB: 4, EndB: 5}, DueToRebase: true},
			},
		},
		OldLines: []string{"1", "2", "3", "4", "5", "6"},
		NewLines: []string{"1", "TWO", "3", "4", "FIVE", "6"},
	}
}

func renderString(t *testing.T, r *Renderer, f File) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, f); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		want     []string
		notWant  []string
	}{
		{
			name:     "no context",
			renderer: Renderer{},
			want: []string{
				"M f.txt +2 -2 (1 rebase edit)",
				"diff --git a/f.txt b/f.txt",
				"@@ -2,1 +2,1 @@\n- 2\n+ TWO\n",
				"@@ -5,1 +5,1 @@ [rebase]\n- 5\n+ FIVE\n",
			},
		},
		{
			name:     "one line of context",
			renderer: Renderer{Context: 1},
			want: []string{
				"@@ -1,3 +1,3 @@\n  1\n- 2\n+ TWO\n  3\n",
			},
		},
		{
			name:     "hide rebase edits",
			renderer: Renderer{HideRebase: true},
			want:     []string{"@@ -2,1 +2,1 @@"},
			notWant:  []string{"[rebase]", "FIVE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderString(t, &tt.renderer, sampleFile())
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Render() = %q, want it to contain %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("Render() = %q, want it not to contain %q", got, w)
				}
			}
		})
	}
}

func TestRenderWithoutContent(t *testing.T) {
	f := sampleFile()
	f.OldLines, f.NewLines = nil, nil

	got := renderString(t, &Renderer{Context: 3}, f)
	if !strings.Contains(got, "@@ -5,1 +5,1 @@ [rebase]\n") {
		t.Errorf("Render() = %q, want bare hunk headers", got)
	}
	if strings.Contains(got, "TWO") {
		t.Errorf("Render() = %q, want no content lines", got)
	}
}

func TestRenderNegativeAndEmpty(t *testing.T) {
	negative := File{Output: filediff.FileDiffOutput{NewPath: "slow.txt", Negative: true}}
	if got := renderString(t, NewRenderer(), negative); !strings.Contains(got, "diff timed out") {
		t.Errorf("Render(negative) = %q, want timeout notice", got)
	}
	empty := File{Output: filediff.FileDiffOutput{NewPath: "same.txt"}}
	if got := renderString(t, NewRenderer(), empty); !strings.Contains(got, "no content changes") {
		t.Errorf("Render(empty) = %q, want no changes notice", got)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		out  filediff.FileDiffOutput
		want string
	}{
		{
			out:  filediff.FileDiffOutput{OldPath: "a.go", NewPath: "b.go", ChangeType: gitdiff.Renamed},
			want: "R a.go -> b.go +0 -0",
		},
		{
			out: filediff.FileDiffOutput{
				NewPath:    "new.go",
				ChangeType: gitdiff.Added,
				Edits:      []filediff.TaggedEdit{{Edit: edits.Edit{EndB: 4}}},
			},
			want: "A new.go +4 -0",
		},
		{
			out:  filediff.FileDiffOutput{OldPath: "gone.go", ChangeType: gitdiff.Deleted},
			want: "D gone.go +0 -0",
		},
	}
	for _, tt := range tests {
		if got := Summary(tt.out); got != tt.want {
			t.Errorf("Summary() = %q, want %q", got, tt.want)
		}
	}
}

func TestHighlightUnknownLanguage(t *testing.T) {
	h := NewSyntaxHighlighter("monokai")
	if got := h.Highlight("plain words", "/COMMIT_MSG"); got != "plain words" {
		t.Errorf("Highlight() = %q, want input unchanged", got)
	}
	var nilHighlighter *SyntaxHighlighter
	if got := nilHighlighter.Highlight("x := 1", "main.go"); got != "x := 1" {
		t.Errorf("nil Highlight() = %q, want input unchanged", got)
	}
}
