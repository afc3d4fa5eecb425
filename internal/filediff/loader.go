package filediff

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"filediff/internal/edits"
	"filediff/internal/gitdiff"
	"filediff/internal/logging"
	"filediff/internal/metrics"
	"filediff/internal/repo"
)

// Loader computes FileDiffOutputs without caching them. Keys that cannot be
// resolved are missing from its results.
type Loader struct {
	repos     *repo.Manager
	evaluator *Evaluator
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewLoader returns a Loader reading repositories from repos and diffs from
// provider.
func NewLoader(repos *repo.Manager, provider gitdiff.Provider, logger *logging.Logger, m *metrics.Metrics) *Loader {
	if logger == nil {
		logger = logging.Discard()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Loader{
		repos:     repos,
		evaluator: NewEvaluator(provider, logger),
		logger:    logger,
		metrics:   m,
	}
}

// Load computes the outputs of keys, one repository session per project.
// A project whose repository cannot be opened is skipped with a warning.
func (l *Loader) Load(ctx context.Context, keys []Key) (map[Key]FileDiffOutput, error) {
	byProject := make(map[string][]Key)
	for _, k := range keys {
		byProject[k.Project] = append(byProject[k.Project], k)
	}
	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	result := make(map[Key]FileDiffOutput, len(keys))
	for _, project := range projects {
		if err := l.loadProject(ctx, project, byProject[project], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (l *Loader) loadProject(ctx context.Context, project string, keys []Key, result map[Key]FileDiffOutput) error {
	session, err := l.repos.Open(project)
	if err != nil {
		l.logger.WarnErr("cannot open repository, skipping batch", err, map[string]any{
			"project": project,
			"keys":    len(keys),
		})
		return nil
	}
	defer session.Close()

	var regular []Key
	for _, k := range keys {
		if !IsMagicPath(k.NewFilePath) {
			regular = append(regular, k)
			continue
		}
		out, err := l.loadMagic(session, k)
		if err != nil {
			l.dropped(k, err)
			continue
		}
		l.metrics.Load("magic")
		result[k] = out
	}
	if len(regular) == 0 {
		return nil
	}

	wrapped := l.wrapKeys(session, regular)
	all, err := l.evaluator.Evaluate(ctx, session, wrapped)
	if err != nil {
		return err
	}
	for _, ak := range wrapped {
		diffs, ok := all[ak]
		if !ok {
			l.metrics.DroppedKeys.Inc()
			continue
		}
		out, err := l.buildOutput(session, diffs)
		if err != nil {
			l.dropped(ak.Key, err)
			continue
		}
		result[ak.Key] = out
	}
	return nil
}

func (l *Loader) dropped(k Key, err error) {
	l.metrics.DroppedKeys.Inc()
	l.logger.WarnErr("dropping key", err, map[string]any{"key": k.String()})
}

// wrapKeys decides per key whether rebase detection applies. It does not
// when the old commit is the root, when the commits are directly related,
// or when their ancestry cannot be determined.
func (l *Loader) wrapKeys(session *repo.Session, keys []Key) []AugmentedKey {
	wrapped := make([]AugmentedKey, 0, len(keys))
	for _, k := range keys {
		ak, err := augment(session, k)
		if err != nil {
			l.logger.WarnErr("cannot determine ancestry, ignoring rebase edits", err, map[string]any{
				"key": k.String(),
			})
			ak = AugmentedKey{Key: k, IgnoreRebase: true}
		}
		wrapped = append(wrapped, ak)
	}
	return wrapped
}

func augment(session *repo.Session, k Key) (AugmentedKey, error) {
	ignore := AugmentedKey{Key: k, IgnoreRebase: true}
	if k.OldCommit.IsZero() {
		return ignore, nil
	}

	related, err := session.AreDirectlyRelated(k.OldCommit, k.NewCommit)
	if err != nil {
		return ignore, err
	}
	if related {
		return ignore, nil
	}

	oldCommit, err := session.Commit(k.OldCommit)
	if err != nil {
		return ignore, err
	}
	newCommit, err := session.Commit(k.NewCommit)
	if err != nil {
		return ignore, err
	}
	if oldCommit.NumParents() == 0 || newCommit.NumParents() == 0 {
		return ignore, nil
	}
	return AugmentedKey{
		Key:       k,
		OldParent: oldCommit.ParentHashes[0],
		NewParent: newCommit.ParentHashes[0],
	}, nil
}

func (l *Loader) loadMagic(session *repo.Session, k Key) (FileDiffOutput, error) {
	ct, err := comparisonType(session, k.OldCommit, k.NewCommit)
	if err != nil {
		return FileDiffOutput{}, err
	}
	newCommit, err := session.Commit(k.NewCommit)
	if err != nil {
		return FileDiffOutput{}, err
	}
	bText, err := magicText(session, k.NewFilePath, newCommit)
	if err != nil {
		return FileDiffOutput{}, err
	}

	hasA := !ct.IsAgainstRoot() && !ct.IsAgainstParentOrAutoMerge()
	var aText string
	if hasA {
		oldCommit, err := session.Commit(k.OldCommit)
		if err != nil {
			return FileDiffOutput{}, err
		}
		if aText, err = magicText(session, k.NewFilePath, oldCommit); err != nil {
			return FileDiffOutput{}, err
		}
	}
	return magicOutput(k, ct, aText, bText, hasA), nil
}

func (l *Loader) buildOutput(session *repo.Session, all AllFileDiffs) (FileDiffOutput, error) {
	k := all.Key
	ct, err := comparisonType(session, k.OldCommit, k.NewCommit)
	if err != nil {
		return FileDiffOutput{}, err
	}

	main := all.Main
	if main.Negative {
		l.metrics.Negatives.Inc()
		return negativeOutput(k.Key, ct), nil
	}
	if main.IsEmpty() {
		l.metrics.Load("empty")
		return emptyOutput(k.Key, ct), nil
	}

	var rebase edits.FileEdits
	if !k.IgnoreRebase {
		rebase = RebaseEdits(all, l.logger)
	}

	oldSize, err := l.blobSize(session, k.OldCommit, main.OldPath, main.OldMode.IsFile(), main.OldID)
	if err != nil {
		return FileDiffOutput{}, err
	}
	newSize, err := l.blobSize(session, k.NewCommit, main.NewPath, main.NewMode.IsFile(), main.NewID)
	if err != nil {
		return FileDiffOutput{}, err
	}

	l.metrics.Load("file")
	return FileDiffOutput{
		OldCommit:      k.OldCommit,
		NewCommit:      k.NewCommit,
		ComparisonType: ct,
		OldPath:        main.OldPath,
		NewPath:        main.NewPath,
		OldMode:        main.OldMode,
		NewMode:        main.NewMode,
		ChangeType:     main.ChangeType,
		PatchType:      main.PatchType,
		HeaderLines:    main.HeaderLines,
		Edits:          TagEdits(main.Edits, rebase),
		Size:           newSize,
		SizeDelta:      newSize - oldSize,
	}, nil
}

// blobSize returns the size of path in the tree of commit. Paths that are
// absent or not blobs count as zero.
func (l *Loader) blobSize(session *repo.Session, commit plumbing.Hash, path string, isBlob bool, id plumbing.Hash) (int64, error) {
	if path == "" || !isBlob {
		return 0, nil
	}
	treeID, err := session.TreeID(commit)
	if err != nil {
		return 0, err
	}
	size, err := session.BlobSize(treeID, path, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get size of %s: %w", path, err)
	}
	return size, nil
}

// comparisonType classifies the old commit relative to the new one.
func comparisonType(session *repo.Session, oldID, newID plumbing.Hash) (ComparisonType, error) {
	if oldID.IsZero() {
		return AgainstRoot(), nil
	}
	newCommit, err := session.Commit(newID)
	if err != nil {
		return ComparisonType{}, err
	}
	for i, p := range newCommit.ParentHashes {
		if p == oldID {
			return AgainstParent(i + 1), nil
		}
	}
	oldCommit, err := session.Commit(oldID)
	if err != nil {
		return ComparisonType{}, err
	}
	if strings.Contains(oldCommit.Message, AutoMergeMarker) {
		return AgainstAutoMerge(), nil
	}
	return AgainstOtherPatchSet(), nil
}
