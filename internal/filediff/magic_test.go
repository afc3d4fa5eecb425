package filediff

import (
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"filediff/internal/gitdiff"
	"filediff/internal/repo"
	"filediff/internal/repo/repotest"
)

func newSession(t *testing.T, r *repotest.Repo) *repo.Session {
	t.Helper()
	s := repo.NewSession("demo", r.Repository)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommitMessageText(t *testing.T) {
	r := repotest.New(t)
	root := r.Commit(map[string]string{"f.txt": "a\n"}, "Initial import\n\nDetails here.\n")
	child := r.Commit(map[string]string{"f.txt": "b\n"}, "Change f\n", root)
	s := newSession(t, r)

	c, err := s.Commit(child)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	got := commitMessageText(s, c)
	want := "Parent:     " + root.String()[:8] + " (Initial import)\n" +
		"Author:     Test User <test@example.com>\n" +
		"AuthorDate: 2024-01-01 12:02:00 +0000\n" +
		"Commit:     Test User <test@example.com>\n" +
		"CommitDate: 2024-01-01 12:02:00 +0000\n" +
		"\n" +
		"Change f\n"
	if got != want {
		t.Errorf("commitMessageText() =\n%s\nwant\n%s", got, want)
	}
}

func TestCommitMessageTextForMerge(t *testing.T) {
	r := repotest.New(t)
	base := r.Commit(map[string]string{"f.txt": "a\n"}, "base")
	left := r.Commit(map[string]string{"f.txt": "b\n"}, "left", base)
	right := r.Commit(map[string]string{"g.txt": "c\n"}, "right", base)
	merge := r.Commit(map[string]string{"f.txt": "b\n", "g.txt": "c\n"}, "merge", left, right)
	s := newSession(t, r)

	c, err := s.Commit(merge)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	lines := strings.Split(commitMessageText(s, c), "\n")
	if want := "Merge Of:   " + left.String()[:8] + " (left)"; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if want := "            " + right.String()[:8] + " (right)"; lines[1] != want {
		t.Errorf("line 1 = %q, want %q", lines[1], want)
	}
}

func TestMergeListText(t *testing.T) {
	r := repotest.New(t)
	base := r.Commit(map[string]string{"f.txt": "a\n"}, "base")
	left := r.Commit(map[string]string{"f.txt": "b\n"}, "left", base)
	side1 := r.Commit(map[string]string{"g.txt": "1\n"}, "side one\n\nbody", base)
	side2 := r.Commit(map[string]string{"g.txt": "2\n"}, "side two", side1)
	merge := r.Commit(map[string]string{"f.txt": "b\n", "g.txt": "2\n"}, "merge", left, side2)
	s := newSession(t, r)

	c, err := s.Commit(merge)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	got, err := mergeListText(s, c)
	if err != nil {
		t.Fatalf("mergeListText() error = %v", err)
	}
	want := "Merge List:\n\n" +
		"* " + side2.String()[:8] + " side two\n" +
		"* " + side1.String()[:8] + " side one\n"
	if got != want {
		t.Errorf("mergeListText() =\n%s\nwant\n%s", got, want)
	}

	single, err := s.Commit(left)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if got, err := mergeListText(s, single); err != nil || got != "" {
		t.Errorf("mergeListText(non-merge) = %q, %v, want empty", got, err)
	}
}

func TestMagicOutput(t *testing.T) {
	key := Key{
		Project:     "demo",
		OldCommit:   plumbing.NewHash("1111111111111111111111111111111111111111"),
		NewCommit:   plumbing.NewHash("2222222222222222222222222222222222222222"),
		NewFilePath: CommitMsgPath,
	}
	aText := "Subject\n\nold body\n"
	bText := "Subject\n\nnew body\nmore\n"

	t.Run("without old side", func(t *testing.T) {
		out := magicOutput(key, AgainstParent(1), aText, bText, false)
		if out.ChangeType != gitdiff.Added || out.OldPath != "" {
			t.Errorf("ChangeType = %v, OldPath = %q, want ADDED without old path", out.ChangeType, out.OldPath)
		}
		if want := "diff --git /dev/null b//COMMIT_MSG"; out.HeaderLines[0] != want {
			t.Errorf("HeaderLines[0] = %q, want %q", out.HeaderLines[0], want)
		}
		bID := plumbing.ComputeHash(plumbing.BlobObject, []byte(bText))
		if want := "index 0000000.." + bID.String()[:7]; out.HeaderLines[1] != want {
			t.Errorf("HeaderLines[1] = %q, want %q", out.HeaderLines[1], want)
		}
		if out.Insertions() != 4 || out.Deletions() != 0 {
			t.Errorf("Insertions() = %d, Deletions() = %d, want 4 and 0", out.Insertions(), out.Deletions())
		}
		if out.Size != int64(len(bText)) || out.SizeDelta != int64(len(bText)) {
			t.Errorf("Size = %d, SizeDelta = %d, want %d for both", out.Size, out.SizeDelta, len(bText))
		}
	})

	t.Run("against other patch set", func(t *testing.T) {
		out := magicOutput(key, AgainstOtherPatchSet(), aText, bText, true)
		if out.ChangeType != gitdiff.Modified || out.OldPath != CommitMsgPath {
			t.Errorf("ChangeType = %v, OldPath = %q, want MODIFIED %s", out.ChangeType, out.OldPath, CommitMsgPath)
		}
		want := []TaggedEdit{{Edit: edit(2, 3, 2, 4)}}
		if len(out.Edits) != 1 || out.Edits[0] != want[0] {
			t.Errorf("Edits = %v, want %v", out.Edits, want)
		}
		if got := out.SizeDelta; got != int64(len(bText)-len(aText)) {
			t.Errorf("SizeDelta = %d, want %d", got, len(bText)-len(aText))
		}
		if len(out.RebaseEdits()) != 0 {
			t.Errorf("RebaseEdits() = %v, want none", out.RebaseEdits())
		}
	})
}

func TestComparisonType(t *testing.T) {
	r := repotest.New(t)
	base := r.Commit(map[string]string{"f.txt": "a\n"}, "base")
	other := r.Commit(map[string]string{"g.txt": "b\n"}, "other")
	autoMerge := r.Commit(map[string]string{"f.txt": "a\n"}, "Auto-merge of base and other")
	merge := r.Commit(map[string]string{"f.txt": "a\n", "g.txt": "b\n"}, "merge", base, other)
	patchSet := r.Commit(map[string]string{"f.txt": "c\n"}, "patch set 1", base)
	s := newSession(t, r)

	tests := []struct {
		name     string
		old, new plumbing.Hash
		want     ComparisonType
	}{
		{"root", plumbing.ZeroHash, base, AgainstRoot()},
		{"first parent", base, merge, AgainstParent(1)},
		{"second parent", other, merge, AgainstParent(2)},
		{"auto merge", autoMerge, merge, AgainstAutoMerge()},
		{"other patch set", patchSet, merge, AgainstOtherPatchSet()},
	}
	for _, tt := range tests {
		got, err := comparisonType(s, tt.old, tt.new)
		if err != nil {
			t.Fatalf("%s: comparisonType() error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: comparisonType() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
