package gitdiff

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"filediff/internal/edits"
)

// ParsePatch reads a git patch and returns one FileDiff per file. Object ids
// are left zero because patches only carry abbreviated ones.
func ParsePatch(r io.Reader) ([]FileDiff, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}

	diffs := make([]FileDiff, 0, len(files))
	for _, f := range files {
		diffs = append(diffs, fromPatchFile(f))
	}
	return diffs, nil
}

func fromPatchFile(f *gitdiff.File) FileDiff {
	d := FileDiff{
		OldPath: f.OldName,
		NewPath: f.NewName,
		OldMode: filemode.FileMode(f.OldMode),
		NewMode: filemode.FileMode(f.NewMode),
	}
	switch {
	case f.IsNew:
		d.ChangeType = Added
		d.OldPath, d.OldMode = "", filemode.Empty
	case f.IsDelete:
		d.ChangeType = Deleted
		d.NewPath, d.NewMode = "", filemode.Empty
	case f.IsRename:
		d.ChangeType = Renamed
	case f.IsCopy:
		d.ChangeType = Copied
	default:
		d.ChangeType = Modified
	}
	if d.ChangeType != Added && d.ChangeType != Deleted && d.NewMode == filemode.Empty {
		// Patches only repeat the mode when it changed.
		d.NewMode = d.OldMode
	}

	if f.IsBinary {
		d.PatchType = PatchBinary
	} else {
		d.PatchType = PatchUnified
		for _, frag := range f.TextFragments {
			d.Edits = append(d.Edits, fragmentEdits(frag)...)
		}
	}

	d.HeaderLines = patchHeader(f, d)
	return d
}

// fragmentEdits converts the lines of one hunk into edits. Hunk positions
// are 1-based except for empty sides, which name the line before the hunk.
func fragmentEdits(frag *gitdiff.TextFragment) []edits.Edit {
	a := int(frag.OldPosition)
	if frag.OldLines > 0 {
		a--
	}
	b := int(frag.NewPosition)
	if frag.NewLines > 0 {
		b--
	}

	var result []edits.Edit
	var pending *edits.Edit
	flush := func() {
		if pending != nil {
			pending.EndA, pending.EndB = a, b
			result = append(result, *pending)
			pending = nil
		}
	}
	for _, line := range frag.Lines {
		switch line.Op {
		case gitdiff.OpContext:
			flush()
			a++
			b++
		case gitdiff.OpDelete:
			if pending == nil {
				pending = &edits.Edit{BeginA: a, BeginB: b}
			}
			a++
		case gitdiff.OpAdd:
			if pending == nil {
				pending = &edits.Edit{BeginA: a, BeginB: b}
			}
			b++
		}
	}
	flush()
	return result
}

func patchHeader(f *gitdiff.File, d FileDiff) []string {
	oldName, newName := f.OldName, f.NewName
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}

	lines := []string{fmt.Sprintf("diff --git a/%s b/%s", oldName, newName)}
	switch d.ChangeType {
	case Added:
		lines = append(lines, "new file mode "+modeString(d.NewMode))
	case Deleted:
		lines = append(lines, "deleted file mode "+modeString(d.OldMode))
	case Renamed:
		if f.Score > 0 {
			lines = append(lines, fmt.Sprintf("similarity index %d%%", f.Score))
		}
		lines = append(lines, "rename from "+f.OldName, "rename to "+f.NewName)
	case Copied:
		if f.Score > 0 {
			lines = append(lines, fmt.Sprintf("similarity index %d%%", f.Score))
		}
		lines = append(lines, "copy from "+f.OldName, "copy to "+f.NewName)
	}
	if f.OldOIDPrefix != "" || f.NewOIDPrefix != "" {
		lines = append(lines, fmt.Sprintf("index %s..%s", f.OldOIDPrefix, f.NewOIDPrefix))
	}
	if f.IsBinary {
		return lines
	}
	if len(f.TextFragments) > 0 {
		a, b := "a/"+oldName, "b/"+newName
		if d.ChangeType == Added {
			a = devNull
		}
		if d.ChangeType == Deleted {
			b = devNull
		}
		lines = append(lines, "--- "+a, "+++ "+b)
	}
	return lines
}

// StaticProvider serves precomputed diffs. Keys without a diff are left out
// of GetAll results, like keys a real provider could not resolve.
type StaticProvider struct {
	mu       sync.Mutex
	diffs    map[Key]FileDiff
	requests []Key
}

// NewStaticProvider returns an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{diffs: make(map[Key]FileDiff)}
}

// Put registers the diff served for key.
func (p *StaticProvider) Put(key Key, d FileDiff) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.diffs[key] = d
}

// PutPatch parses patch and serves its first file for key.
func (p *StaticProvider) PutPatch(key Key, r io.Reader) error {
	diffs, err := ParsePatch(r)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		p.Put(key, FileDiff{})
		return nil
	}
	p.Put(key, diffs[0])
	return nil
}

// Requests returns every key asked for so far, in order.
func (p *StaticProvider) Requests() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Key, len(p.requests))
	copy(out, p.requests)
	return out
}

// GetAll implements Provider.
func (p *StaticProvider) GetAll(ctx context.Context, keys []Key) (map[Key]FileDiff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[Key]FileDiff, len(keys))
	for _, k := range keys {
		p.requests = append(p.requests, k)
		if d, ok := p.diffs[k]; ok {
			result[k] = d
		}
	}
	return result, nil
}
