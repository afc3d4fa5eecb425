package gitdiff

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"filediff/internal/edits"
)

const samplePatch = `diff --git a/f.txt b/f.txt
index 1234567..89abcde 100644
--- a/f.txt
+++ b/f.txt
@@ -1,3 +1,3 @@
 a
-b
+B
 c
@@ -10,2 +10,4 @@
 j
+k
+l
 m
diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+x
+y
diff --git a/old.txt b/renamed.txt
similarity index 100%
rename from old.txt
rename to renamed.txt
`

func TestParsePatch(t *testing.T) {
	diffs, err := ParsePatch(strings.NewReader(samplePatch))
	if err != nil {
		t.Fatalf("ParsePatch() error = %v", err)
	}
	if len(diffs) != 3 {
		t.Fatalf("ParsePatch() returned %d diffs, want 3", len(diffs))
	}

	modified := diffs[0]
	if modified.ChangeType != Modified || modified.NewMode != filemode.Regular {
		t.Errorf("modified = %v mode %v, want MODIFIED 0100644", modified.ChangeType, modified.NewMode)
	}
	wantEdits := []edits.Edit{
		{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2},
		{BeginA: 10, EndA: 10, BeginB: 10, EndB: 12},
	}
	if !reflect.DeepEqual(modified.Edits, wantEdits) {
		t.Errorf("modified edits = %v, want %v", modified.Edits, wantEdits)
	}

	added := diffs[1]
	if added.ChangeType != Added || added.OldPath != "" || added.NewPath != "new.txt" {
		t.Errorf("added = %+v", added)
	}
	if want := []edits.Edit{{BeginA: 0, EndA: 0, BeginB: 0, EndB: 2}}; !reflect.DeepEqual(added.Edits, want) {
		t.Errorf("added edits = %v, want %v", added.Edits, want)
	}
	if added.HeaderLines[2] != "index 0000000..1111111" || added.HeaderLines[3] != "--- /dev/null" {
		t.Errorf("added header = %q", added.HeaderLines)
	}

	renamed := diffs[2]
	if renamed.ChangeType != Renamed || renamed.OldPath != "old.txt" || renamed.NewPath != "renamed.txt" {
		t.Errorf("renamed = %+v", renamed)
	}
	if len(renamed.Edits) != 0 || renamed.IsEmpty() {
		t.Errorf("renamed should have a header and no edits: %+v", renamed)
	}
}

func TestStaticProviderDropsUnknownKeys(t *testing.T) {
	p := NewStaticProvider()
	known := Key{Project: "demo", NewFilePath: "f.txt", NewTree: plumbing.NewHash("aa")}
	unknown := Key{Project: "demo", NewFilePath: "g.txt"}
	if err := p.PutPatch(known, strings.NewReader(samplePatch)); err != nil {
		t.Fatalf("PutPatch() error = %v", err)
	}

	got, err := p.GetAll(context.Background(), []Key{known, unknown})
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if _, ok := got[unknown]; ok {
		t.Error("GetAll() returned a diff for an unknown key")
	}
	if d, ok := got[known]; !ok || d.NewPath != "f.txt" {
		t.Errorf("GetAll()[known] = %+v, %v", d, ok)
	}
	if n := len(p.Requests()); n != 2 {
		t.Errorf("Requests() = %d keys, want 2", n)
	}
}

func TestHeaderLines(t *testing.T) {
	oldID := plumbing.NewHash("1111111111111111111111111111111111111111")
	newID := plumbing.NewHash("2222222222222222222222222222222222222222")

	tests := []struct {
		name   string
		header Header
		want   []string
	}{
		{
			name:   "modified",
			header: Header{ChangeType: Modified, OldPath: "f", NewPath: "f", OldMode: filemode.Regular, NewMode: filemode.Regular, OldID: oldID, NewID: newID},
			want:   []string{"diff --git a/f b/f", "index 1111111..2222222 100644", "--- a/f", "+++ b/f"},
		},
		{
			name:   "added",
			header: Header{ChangeType: Added, NewPath: "f", NewMode: filemode.Executable, NewID: newID},
			want:   []string{"diff --git a/f b/f", "new file mode 100755", "index 0000000..2222222", "--- /dev/null", "+++ b/f"},
		},
		{
			name:   "pure rename",
			header: Header{ChangeType: Renamed, OldPath: "a", NewPath: "b", OldMode: filemode.Regular, NewMode: filemode.Regular, OldID: oldID, NewID: oldID},
			want:   []string{"diff --git a/a b/b", "rename from a", "rename to b"},
		},
		{
			name:   "binary deleted",
			header: Header{ChangeType: Deleted, OldPath: "f.bin", OldMode: filemode.Regular, OldID: oldID, Binary: true},
			want:   []string{"diff --git a/f.bin b/f.bin", "deleted file mode 100644", "index 1111111..0000000", "Binary files a/f.bin and /dev/null differ"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.header.Lines(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines() = %q, want %q", got, tt.want)
			}
		})
	}
}
