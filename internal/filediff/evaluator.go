package filediff

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"filediff/internal/gitdiff"
	"filediff/internal/logging"
	"filediff/internal/repo"
)

// Evaluator loads the main diff and, where rebase detection applies, the
// three parent diffs of a batch of keys.
type Evaluator struct {
	provider gitdiff.Provider
	logger   *logging.Logger
}

// NewEvaluator returns an Evaluator computing diffs with provider.
func NewEvaluator(provider gitdiff.Provider, logger *logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Evaluator{provider: provider, logger: logger}
}

// diffRequest asks for the diff of path between commits a and b on behalf
// of key.
type diffRequest struct {
	key  AugmentedKey
	a    plumbing.Hash
	b    plumbing.Hash
	path string
}

// Evaluate returns the diffs of every key it could resolve. Keys whose trees
// or main diff cannot be resolved are missing from the result.
func (e *Evaluator) Evaluate(ctx context.Context, session *repo.Session, keys []AugmentedKey) (map[AugmentedKey]AllFileDiffs, error) {
	mainRequests := make([]diffRequest, 0, len(keys))
	for _, k := range keys {
		mainRequests = append(mainRequests, diffRequest{key: k, a: k.OldCommit, b: k.NewCommit, path: k.NewFilePath})
	}
	mains, err := e.batch(ctx, session, "main", mainRequests)
	if err != nil {
		return nil, err
	}

	var withRebase []AugmentedKey
	for _, k := range keys {
		if _, ok := mains[k]; ok && !k.IgnoreRebase {
			withRebase = append(withRebase, k)
		}
	}

	var oldRequests, newRequests []diffRequest
	for _, k := range withRebase {
		if oldPath := mains[k].OldPath; oldPath != "" {
			oldRequests = append(oldRequests, diffRequest{key: k, a: k.OldParent, b: k.OldCommit, path: oldPath})
		}
		newRequests = append(newRequests, diffRequest{key: k, a: k.NewParent, b: k.NewCommit, path: k.NewFilePath})
	}
	oldVsParent, err := e.batch(ctx, session, "old-vs-parent", oldRequests)
	if err != nil {
		return nil, err
	}
	newVsParent, err := e.batch(ctx, session, "new-vs-parent", newRequests)
	if err != nil {
		return nil, err
	}

	parentRequests := make([]diffRequest, 0, len(withRebase))
	for _, k := range withRebase {
		// TODO(filediff): falling back to the requested path is a heuristic;
		// it is wrong when the file was added between the new parent and the
		// new commit under a name that existed in the old parent.
		path := k.NewFilePath
		if d, ok := newVsParent[k]; ok && d.OldPath != "" {
			path = d.OldPath
		}
		parentRequests = append(parentRequests, diffRequest{key: k, a: k.OldParent, b: k.NewParent, path: path})
	}
	parentVsParent, err := e.batch(ctx, session, "parent-vs-parent", parentRequests)
	if err != nil {
		return nil, err
	}

	result := make(map[AugmentedKey]AllFileDiffs, len(mains))
	for _, k := range keys {
		main, ok := mains[k]
		if !ok {
			continue
		}
		all := AllFileDiffs{Key: k, Main: main}
		all.OldVsParent = nonEmpty(oldVsParent, k)
		all.NewVsParent = nonEmpty(newVsParent, k)
		all.ParentVsParent = nonEmpty(parentVsParent, k)
		result[k] = all
	}
	return result, nil
}

func nonEmpty(diffs map[AugmentedKey]gitdiff.FileDiff, k AugmentedKey) *gitdiff.FileDiff {
	d, ok := diffs[k]
	if !ok || d.IsEmpty() {
		return nil
	}
	return &d
}

// batch resolves the commits of each request to trees and loads the diffs
// with one provider call. Unresolvable requests are dropped with a warning.
func (e *Evaluator) batch(ctx context.Context, session *repo.Session, kind string, requests []diffRequest) (map[AugmentedKey]gitdiff.FileDiff, error) {
	if len(requests) == 0 {
		return map[AugmentedKey]gitdiff.FileDiff{}, nil
	}

	gitKeys := make(map[AugmentedKey]gitdiff.Key, len(requests))
	unique := make([]gitdiff.Key, 0, len(requests))
	seen := make(map[gitdiff.Key]bool, len(requests))
	for _, r := range requests {
		gk, err := gitKeyFor(session, r)
		if err != nil {
			e.logger.WarnErr("dropping key, cannot resolve trees", err, map[string]any{
				"diff": kind,
				"key":  r.key.String(),
			})
			continue
		}
		gitKeys[r.key] = gk
		if !seen[gk] {
			seen[gk] = true
			unique = append(unique, gk)
		}
	}

	e.logger.Debug("loading diffs", map[string]any{
		"diff":     kind,
		"requests": len(requests),
		"unique":   len(unique),
	})
	diffs, err := e.provider.GetAll(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s diffs: %w", kind, err)
	}

	result := make(map[AugmentedKey]gitdiff.FileDiff, len(gitKeys))
	for k, gk := range gitKeys {
		d, ok := diffs[gk]
		if !ok {
			e.logger.Warn("dropping key, no diff returned", map[string]any{
				"diff": kind,
				"key":  k.String(),
			})
			continue
		}
		result[k] = d
	}
	return result, nil
}

func gitKeyFor(session *repo.Session, r diffRequest) (gitdiff.Key, error) {
	oldTree, err := session.TreeID(r.a)
	if err != nil {
		return gitdiff.Key{}, err
	}
	newTree, err := session.TreeID(r.b)
	if err != nil {
		return gitdiff.Key{}, err
	}
	return gitdiff.Key{
		Project:     r.key.Project,
		OldTree:     oldTree,
		NewTree:     newTree,
		NewFilePath: r.path,
		RenameScore: r.key.RenameScore,
		Algorithm:   r.key.Algorithm,
		Whitespace:  r.key.Whitespace,
	}, nil
}
