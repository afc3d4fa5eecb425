package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type testRepo struct {
	dir     string
	commits []plumbing.Hash
}

// newTestRepo commits the given contents of f.txt one after another.
func newTestRepo(t *testing.T, contents ...string) testRepo {
	t.Helper()
	dir := t.TempDir()
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	wt, err := r.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}

	repo := testRepo{dir: dir}
	when := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range contents {
		if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := wt.Add("f.txt"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when.Add(time.Duration(i) * time.Minute)}
		id, err := wt.Commit("commit "+string(rune('A'+i)), &git.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		repo.commits = append(repo.commits, id)
	}
	return repo
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if want := "filediff " + appVersion + "\n"; out != want {
		t.Errorf("version output = %q, want %q", out, want)
	}
}

func TestDiffAgainstFirstParent(t *testing.T) {
	repo := newTestRepo(t, "1\n2\n3\n4\n5\n6\n", "1\nTWO\n3\n4\n5\n6\n")

	out, _, err := execute(t, "diff", "--repo", repo.dir, "--path", "f.txt", "--context", "0")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{
		"M f.txt +1 -1",
		"diff --git a/f.txt b/f.txt",
		"@@ -2,1 +2,1 @@\n- 2\n+ TWO\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff output = %q, want it to contain %q", out, want)
		}
	}
	if strings.Contains(out, "[rebase]") {
		t.Errorf("diff output = %q, want no rebase edits", out)
	}
}

func TestDiffAllChangedFiles(t *testing.T) {
	repo := newTestRepo(t, "a\n", "b\n")

	out, _, err := execute(t, "diff", "--repo", repo.dir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"M f.txt +1 -1", "A /COMMIT_MSG", "+ commit B"} {
		if !strings.Contains(out, want) {
			t.Errorf("diff output = %q, want it to contain %q", out, want)
		}
	}
}

func TestDiffRootCommit(t *testing.T) {
	repo := newTestRepo(t, "1\n2\n3\n", "1\n")

	out, _, err := execute(t, "diff", "--repo", repo.dir, "--path", "f.txt", repo.commits[0].String())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "A f.txt +3 -0") {
		t.Errorf("diff output = %q, want the file added against the empty tree", out)
	}
}

func TestDiffExplicitRange(t *testing.T) {
	repo := newTestRepo(t, "1\n2\n", "1\n2\n3\n", "1\n2\n3\n4\n")

	out, _, err := execute(t, "diff", "--repo", repo.dir, "--path", "f.txt",
		repo.commits[0].String(), repo.commits[2].String())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "M f.txt +2 -0") {
		t.Errorf("diff output = %q, want both added lines", out)
	}
}

func TestDiffStats(t *testing.T) {
	repo := newTestRepo(t, "a\n", "b\n")

	_, errOut, err := execute(t, "diff", "--repo", repo.dir, "--path", "f.txt", "--stats")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{
		"cache entries: 1",
		`filediff_cache_lookups_total{result="miss"} 1`,
		`filediff_loads_total{kind="file"} 1`,
		"filediff_load_latency_seconds_count 1",
	} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stats output = %q, want it to contain %q", errOut, want)
		}
	}
}

func TestDiffErrors(t *testing.T) {
	repo := newTestRepo(t, "a\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown revision",
			args: []string{"diff", "--repo", repo.dir, "no-such-branch"},
			want: "failed to resolve no-such-branch",
		},
		{
			name: "not a repository",
			args: []string{"diff", "--repo", t.TempDir()},
			want: "failed to open git repository",
		},
		{
			name: "unknown algorithm",
			args: []string{"diff", "--repo", repo.dir, "--algorithm", "patience"},
			want: "invalid flags",
		},
		{
			name: "too many revisions",
			args: []string{"diff", "--repo", repo.dir, "a", "b", "c"},
			want: "accepts at most 2 arg(s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if err == nil {
				t.Fatalf("Execute() error = nil, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Execute() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	repo := newTestRepo(t, "a\n", "b\n")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"watch", "--repo", repo.dir, "--path", "f.txt"})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("ExecuteContext() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "M f.txt +1 -1") {
		t.Errorf("watch output = %q, want the initial diff", stdout.String())
	}
}
