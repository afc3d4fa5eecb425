package gitdiff

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"filediff/internal/edits"
	"filediff/internal/logging"
	"filediff/internal/repo"
)

// Provider computes file diffs in batches. Keys that cannot be served are
// left out of the result rather than failing the batch; the error return is
// reserved for cancellation.
type Provider interface {
	GetAll(ctx context.Context, keys []Key) (map[Key]FileDiff, error)
}

// GitProvider computes file diffs from go-git repositories.
type GitProvider struct {
	repos   *repo.Manager
	timeout time.Duration
	logger  *logging.Logger
}

// NewGitProvider returns a provider reading repositories from repos. Each
// file diff that takes longer than timeout yields a negative FileDiff; a
// zero timeout waits forever.
func NewGitProvider(repos *repo.Manager, timeout time.Duration, logger *logging.Logger) *GitProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &GitProvider{repos: repos, timeout: timeout, logger: logger}
}

// GetAll implements Provider.
func (p *GitProvider) GetAll(ctx context.Context, keys []Key) (map[Key]FileDiff, error) {
	byProject := make(map[string][]Key)
	for _, k := range keys {
		byProject[k.Project] = append(byProject[k.Project], k)
	}
	projects := make([]string, 0, len(byProject))
	for project := range byProject {
		projects = append(projects, project)
	}
	sort.Strings(projects)

	result := make(map[Key]FileDiff, len(keys))
	for _, project := range projects {
		if err := p.loadProject(ctx, project, byProject[project], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type treePair struct {
	oldTree     plumbing.Hash
	newTree     plumbing.Hash
	renameScore int
}

func (p *GitProvider) loadProject(ctx context.Context, project string, keys []Key, result map[Key]FileDiff) error {
	session, err := p.repos.Open(project)
	if err != nil {
		p.logger.WarnErr("cannot open repository, skipping file diffs", err, map[string]any{
			"project": project,
			"keys":    len(keys),
		})
		return nil
	}
	defer session.Close()

	changes := make(map[treePair]object.Changes)
	for _, key := range keys {
		d, err := p.load(ctx, session, key, changes)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			p.logger.WarnErr("dropping file diff", err, map[string]any{"key": key.String()})
			continue
		}
		result[key] = d
	}
	return nil
}

func (p *GitProvider) load(ctx context.Context, session *repo.Session, key Key, cache map[treePair]object.Changes) (FileDiff, error) {
	pair := treePair{oldTree: key.OldTree, newTree: key.NewTree, renameScore: key.RenameScore}
	changes, ok := cache[pair]
	if !ok {
		var err error
		changes, err = diffTrees(ctx, session, pair)
		if err != nil {
			return FileDiff{}, err
		}
		cache[pair] = changes
	}

	change := findChange(changes, key.NewFilePath)
	if change == nil {
		return FileDiff{}, nil
	}
	return p.computeWithTimeout(ctx, session.Repository(), key, change)
}

func diffTrees(ctx context.Context, session *repo.Session, pair treePair) (object.Changes, error) {
	oldTree, err := session.Tree(pair.oldTree)
	if err != nil {
		return nil, err
	}
	newTree, err := session.Tree(pair.newTree)
	if err != nil {
		return nil, err
	}

	opts := *object.DefaultDiffTreeOptions
	if pair.renameScore < 0 {
		opts.DetectRenames = false
	} else {
		opts.RenameScore = uint(pair.renameScore)
	}
	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees %s and %s: %w", pair.oldTree, pair.newTree, err)
	}
	return changes, nil
}

func findChange(changes object.Changes, path string) *object.Change {
	var deleted *object.Change
	for _, c := range changes {
		if c.To.Name == path {
			return c
		}
		if c.To.Name == "" && c.From.Name == path {
			deleted = c
		}
	}
	return deleted
}

// computeWithTimeout reads both sides of change on the calling goroutine,
// then computes the line edits on a helper goroutine bounded by the timeout.
// Only the helper outlives a timeout, and it holds nothing but the file
// contents, so the repository is never read concurrently.
func (p *GitProvider) computeWithTimeout(ctx context.Context, r *git.Repository, key Key, change *object.Change) (FileDiff, error) {
	d, oldContent, newContent, err := readChange(r, key, change)
	if err != nil {
		return FileDiff{}, err
	}
	if d.PatchType == PatchBinary {
		return d, nil
	}

	done := make(chan []edits.Edit, 1)
	go func() {
		done <- ComputeContentEdits(key.Algorithm, key.Whitespace, string(oldContent), string(newContent))
	}()

	var expired <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case d.Edits = <-done:
		return d, nil
	case <-expired:
		p.logger.Warn("file diff timed out", map[string]any{
			"key":     key.String(),
			"timeout": p.timeout.String(),
		})
		return negative(key.NewFilePath), nil
	case <-ctx.Done():
		return FileDiff{}, ctx.Err()
	}
}

// readChange describes change without its edits and returns the content of
// both sides. Binary files come back complete.
func readChange(r *git.Repository, key Key, change *object.Change) (FileDiff, []byte, []byte, error) {
	action, err := change.Action()
	if err != nil {
		return FileDiff{}, nil, nil, fmt.Errorf("failed to classify change of %s: %w", key.NewFilePath, err)
	}

	d := FileDiff{
		OldPath: change.From.Name,
		NewPath: change.To.Name,
		OldMode: change.From.TreeEntry.Mode,
		NewMode: change.To.TreeEntry.Mode,
		OldID:   change.From.TreeEntry.Hash,
		NewID:   change.To.TreeEntry.Hash,
	}
	switch action {
	case merkletrie.Insert:
		d.ChangeType = Added
	case merkletrie.Delete:
		d.ChangeType = Deleted
	default:
		d.ChangeType = Modified
		if d.OldPath != d.NewPath {
			d.ChangeType = Renamed
		}
	}

	oldContent, err := entryContent(r, change.From)
	if err != nil {
		return FileDiff{}, nil, nil, err
	}
	newContent, err := entryContent(r, change.To)
	if err != nil {
		return FileDiff{}, nil, nil, err
	}

	header := Header{
		ChangeType: d.ChangeType,
		OldPath:    d.OldPath,
		NewPath:    d.NewPath,
		OldMode:    d.OldMode,
		NewMode:    d.NewMode,
		OldID:      d.OldID,
		NewID:      d.NewID,
	}
	if isBinary(oldContent) || isBinary(newContent) {
		d.PatchType = PatchBinary
		header.Binary = true
	} else {
		d.PatchType = PatchUnified
	}
	d.HeaderLines = header.Lines()
	return d, oldContent, newContent, nil
}

func entryContent(r *git.Repository, entry object.ChangeEntry) ([]byte, error) {
	if entry.Name == "" {
		return nil, nil
	}
	if entry.TreeEntry.Mode == filemode.Submodule {
		return []byte("Subproject commit " + entry.TreeEntry.Hash.String() + "\n"), nil
	}

	blob, err := r.BlobObject(entry.TreeEntry.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", entry.Name, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	return content, nil
}
